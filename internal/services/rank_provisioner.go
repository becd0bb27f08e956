package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"rank-api/internal/database"
	"rank-api/internal/models"
	"rank-api/pkg/logging"
)

const (
	DefaultMaxAttempts = 3
	DefaultCommand     = CommandTemplate("lp user {identity} parent add {entitlement}")
)

var (
	nickPattern  = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)
	groupPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)
)

// FailureNotifier is told about purchases that ended as failed.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, purchase models.Purchase, reason string) error
}

// RankProvisioner grants a purchased rank over RCON and records the outcome.
type RankProvisioner struct {
	ledger      PurchaseLedger
	dialer      SessionDialer
	command     CommandTemplate
	maxAttempts int
	notifier    FailureNotifier
	sleep       func(ctx context.Context, d time.Duration) error
}

type ProvisionerOption func(*RankProvisioner)

func WithMaxAttempts(n int) ProvisionerOption {
	return func(p *RankProvisioner) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithCommandTemplate(t string) ProvisionerOption {
	return func(p *RankProvisioner) {
		if t != "" {
			p.command = CommandTemplate(t)
		}
	}
}

func WithFailureNotifier(n FailureNotifier) ProvisionerOption {
	return func(p *RankProvisioner) {
		p.notifier = n
	}
}

// NewRankProvisioner creates a provisioner
func NewRankProvisioner(ledger PurchaseLedger, dialer SessionDialer, opts ...ProvisionerOption) *RankProvisioner {
	p := &RankProvisioner{
		ledger:      ledger,
		dialer:      dialer,
		command:     DefaultCommand,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateNick checks a Minecraft player name.
func ValidateNick(nick string) error {
	if !nickPattern.MatchString(nick) {
		return &ValidationError{Field: "nick", Message: fmt.Sprintf("%q must be 3-16 characters of A-Z, a-z, 0-9 or _", nick)}
	}
	return nil
}

// ValidateGroup checks a LuckPerms group name so the rendered command stays a single token.
func ValidateGroup(group string) error {
	if !groupPattern.MatchString(group) {
		return &ValidationError{Field: "rank group", Message: fmt.Sprintf("%q contains unsupported characters", group)}
	}
	return nil
}

// Provision moves a pending purchase to completed or failed. It writes exactly
// one terminal status; the returned error only reports a ledger failure.
func (p *RankProvisioner) Provision(ctx context.Context, purchase models.Purchase) error {
	// Validation failures cannot succeed on retry.
	if err := ValidateNick(purchase.Identity); err != nil {
		return p.fail(ctx, purchase, err, 0)
	}
	if err := ValidateGroup(purchase.Entitlement); err != nil {
		return p.fail(ctx, purchase, err, 0)
	}

	command := p.command.Render(purchase.Identity, purchase.Entitlement)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attempts = attempt
		response, err := p.attempt(ctx, command)
		if err == nil {
			logging.Infof("Rank %q assigned to %s (order: %s, attempt: %d, response: %q)",
				purchase.Entitlement, purchase.Identity, purchase.OrderID, attempt, response)
			return p.complete(ctx, purchase)
		}

		lastErr = err
		logging.Errorf("Attempt %d/%d failed for %s (order: %s): %v",
			attempt, p.maxAttempts, purchase.Identity, purchase.OrderID, err)

		if attempt == p.maxAttempts || !IsRetryable(err) {
			break
		}

		if err := p.sleep(ctx, Backoff(attempt)); err != nil {
			lastErr = fmt.Errorf("provisioning interrupted after attempt %d: %v: %w", attempt, lastErr, err)
			break
		}
	}

	return p.fail(ctx, purchase, lastErr, attempts)
}

// Backoff returns the wait after the given failed attempt: 2s, 4s, 8s, ...
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// attempt opens a session, sends one command and always closes the session.
func (p *RankProvisioner) attempt(ctx context.Context, command string) (string, error) {
	session, err := p.dialer.Dial(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &TransientRemoteError{Op: "connect", Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			logging.Warnf("Failed to close RCON session: %v", err)
		}
	}()

	response, err := session.Execute(command)
	if err != nil {
		return "", &TransientRemoteError{Op: "send", Err: err}
	}
	return response, nil
}

func (p *RankProvisioner) complete(ctx context.Context, purchase models.Purchase) error {
	err := p.ledger.SetStatus(context.WithoutCancel(ctx), purchase.ID, models.StatusCompleted, "")
	return p.checkLedger(purchase, models.StatusCompleted, err)
}

func (p *RankProvisioner) fail(ctx context.Context, purchase models.Purchase, cause error, attempts int) error {
	if cause == nil {
		cause = errors.New("unknown provisioning failure")
	}
	reason := cause.Error()
	logging.Errorf("Rank %q for %s (order: %s) failed after %d attempt(s): %s",
		purchase.Entitlement, purchase.Identity, purchase.OrderID, attempts, reason)

	// The terminal write must land even when shutdown cancelled ctx.
	writeCtx := context.WithoutCancel(ctx)
	err := p.ledger.SetStatus(writeCtx, purchase.ID, models.StatusFailed, reason)
	if err := p.checkLedger(purchase, models.StatusFailed, err); err != nil {
		return err
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyFailure(writeCtx, purchase, reason); err != nil {
			logging.Errorf("Failed to send failure alert for order %s: %v", purchase.OrderID, err)
		}
	}
	return nil
}

func (p *RankProvisioner) checkLedger(purchase models.Purchase, status models.PurchaseStatus, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrNoPendingPurchase) {
		logging.Warnf("Purchase %d no longer pending, not marking %s (order: %s, nick: %s)",
			purchase.ID, status, purchase.OrderID, purchase.Identity)
		return nil
	}
	return fmt.Errorf("failed to mark purchase %s: %w", status, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
