package services

import (
	"context"
	"strings"
	"time"

	"github.com/gorcon/rcon"
)

// CommandSession is one authenticated connection to the server's admin console.
type CommandSession interface {
	Execute(command string) (string, error)
	Close() error
}

// SessionDialer opens a new CommandSession per provisioning attempt.
type SessionDialer interface {
	Dial(ctx context.Context) (CommandSession, error)
}

// RCONDialer dials Minecraft RCON endpoints.
type RCONDialer struct {
	Address  string
	Password string
	Timeout  time.Duration
}

// NewRCONDialer creates a dialer. Timeout bounds both connect and each response.
func NewRCONDialer(address, password string, timeout time.Duration) *RCONDialer {
	return &RCONDialer{
		Address:  address,
		Password: password,
		Timeout:  timeout,
	}
}

func (d *RCONDialer) Dial(ctx context.Context) (CommandSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := rcon.Dial(d.Address, d.Password,
		rcon.SetDialTimeout(d.Timeout),
		rcon.SetDeadline(d.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// CommandTemplate renders the grant command for a player.
type CommandTemplate string

// Render substitutes {identity} and {entitlement}.
func (t CommandTemplate) Render(identity, entitlement string) string {
	r := strings.NewReplacer("{identity}", identity, "{entitlement}", entitlement)
	return r.Replace(string(t))
}
