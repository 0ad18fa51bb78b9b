package chain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel failures the scan loop reacts to. Everything else coming out of
// the transport is wrapped as a NetworkError and treated as transient.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrRangeTooLarge = errors.New("block range too large")
)

// NetworkError wraps a transient transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Classify maps a provider error onto the failure taxonomy. Providers signal
// rate limiting and oversized ranges through message text, not error codes.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isRateLimitMessage(msg):
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	case isRangeMessage(msg):
		return fmt.Errorf("%s: %w: %v", op, ErrRangeTooLarge, err)
	default:
		return &NetworkError{Op: op, Err: err}
	}
}

func isRateLimitMessage(msg string) bool {
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "request limit reached")
}

func isRangeMessage(msg string) bool {
	return strings.Contains(msg, "block range") ||
		strings.Contains(msg, "too large") ||
		strings.Contains(msg, "response size exceeded") ||
		strings.Contains(msg, "query returned more than")
}

// IsRateLimited reports whether the failure was a provider rate limit.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRangeTooLarge reports whether the provider rejected the requested range.
func IsRangeTooLarge(err error) bool {
	return errors.Is(err, ErrRangeTooLarge)
}

// IsTransient reports whether the failure is worth retrying with backoff.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	if IsRangeTooLarge(err) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr net.Error
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
