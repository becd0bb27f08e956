package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rank-api/internal/database"
	"rank-api/internal/models"
)

// memoryLedger is an in-memory PurchaseLedger with the same transition rules as the gorm store.
type memoryLedger struct {
	mu        sync.Mutex
	records   []*models.Purchase
	insertErr error
	nextID    uint
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{}
}

func (l *memoryLedger) Exists(_ context.Context, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (l *memoryLedger) Insert(_ context.Context, p *models.Purchase) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	l.nextID++
	p.ID = l.nextID
	p.Status = models.StatusPending
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	l.records = append(l.records, &cp)
	return nil
}

func (l *memoryLedger) SetStatus(_ context.Context, id uint, status models.PurchaseStatus, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !status.IsTerminal() {
		return fmt.Errorf("invalid target status %q", status)
	}
	for _, r := range l.records {
		if r.ID == id && r.Status == models.StatusPending {
			r.Status = status
			r.UpdatedAt = time.Now()
			if status == models.StatusFailed {
				m := msg
				r.ErrorMessage = &m
			}
			return nil
		}
	}
	return database.ErrNoPendingPurchase
}

func (l *memoryLedger) all() []models.Purchase {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Purchase, 0, len(l.records))
	for _, r := range l.records {
		out = append(out, *r)
	}
	return out
}

func (l *memoryLedger) find(identity string) (models.Purchase, bool) {
	for _, r := range l.all() {
		if r.Identity == identity {
			return r, true
		}
	}
	return models.Purchase{}, false
}

// scriptedDialer fails or succeeds per attempt and counts sessions.
type scriptedDialer struct {
	mu       sync.Mutex
	dialErrs []error // per dial, nil = connect ok
	execErrs []error // per executed command, nil = ok
	// execFn overrides execErrs when set
	execFn   func(command string) (string, error)
	dials    int
	closes   int
	commands []string
}

func (d *scriptedDialer) Dial(_ context.Context) (CommandSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	if i < len(d.dialErrs) && d.dialErrs[i] != nil {
		return nil, d.dialErrs[i]
	}
	return &scriptedSession{dialer: d}, nil
}

func (d *scriptedDialer) counts() (dials, closes, commands int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials, d.closes, len(d.commands)
}

type scriptedSession struct {
	dialer *scriptedDialer
}

func (s *scriptedSession) Execute(command string) (string, error) {
	d := s.dialer
	d.mu.Lock()
	i := len(d.commands)
	d.commands = append(d.commands, command)
	fn := d.execFn
	var err error
	if i < len(d.execErrs) {
		err = d.execErrs[i]
	}
	d.mu.Unlock()

	if fn != nil {
		return fn(command)
	}
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func (s *scriptedSession) Close() error {
	s.dialer.mu.Lock()
	s.dialer.closes++
	s.dialer.mu.Unlock()
	return nil
}

// recordingSleep records backoff waits without sleeping.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, p models.Purchase, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, p.Identity+": "+reason)
	return n.err
}

var errRefused = errors.New("dial tcp 127.0.0.1:25575: connect: connection refused")

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
