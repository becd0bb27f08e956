package services

import (
	"errors"
	"fmt"
)

// ErrOrderInFlight is returned when another delivery of the same order holds the order lock.
var ErrOrderInFlight = errors.New("order is already being processed")

// AuthError 签名校验失败
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "webhook authentication failed: " + e.Reason
}

// ValidationError marks input that can never succeed, so it is not retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransientRemoteError wraps a failed RCON connect or send. It is retried.
type TransientRemoteError struct {
	Op  string
	Err error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("rcon %s failed: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth another provisioning attempt.
func IsRetryable(err error) bool {
	var remote *TransientRemoteError
	return errors.As(err, &remote)
}
