// Package retrypolicy classifies errors as retryable or terminal and
// computes exponential backoff with a cap, grounded on the connection-error
// keyword matching in the teacher's data package and its 429-backoff loop
// for third-party API calls.
package retrypolicy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Policy holds the tunable retry parameters. The zero value is not usable;
// construct with Default or a fully populated struct literal.
type Policy struct {
	Initial     time.Duration
	Multiplier  float64
	Cap         time.Duration
	MaxAttempts int
}

// Default returns the spec-mandated defaults: 1s initial, x2 multiplier,
// 60s cap, 3 max attempts.
func Default() Policy {
	return Policy{
		Initial:     time.Second,
		Multiplier:  2,
		Cap:         60 * time.Second,
		MaxAttempts: 3,
	}
}

var connectionKeywords = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"connection aborted",
	"unexpected eof",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"timeout",
	"timed out",
	"connection lost",
	"server closed the connection",
}

// HTTPStatusError is the minimal contract retryable-status classification
// needs from an HTTP response error. The HTTP adapter's errors are
// *domain.Error values, which do not implement it.
type HTTPStatusError interface {
	error
	StatusCode() int
}

// IsRetryable reports whether err looks like a transient network failure or
// an HTTP 5xx — never permission-denied, disk-full, or validation errors,
// which are terminal for the containing job.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() >= 500 && statusErr.StatusCode() < 600
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range connectionKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// IsRetryableStatus reports whether an HTTP status code alone (no error
// value) should be retried: exactly 5xx.
func IsRetryableStatus(code int) bool {
	return code >= http.StatusInternalServerError && code < 600
}

// Backoff computes min(initial * multiplier^attempt, cap) for the given
// zero-based attempt number.
func (p Policy) Backoff(attempt int) time.Duration {
	d := float64(p.Initial)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	backoff := time.Duration(d)
	if backoff > p.Cap {
		return p.Cap
	}
	return backoff
}

// Sleep waits for Backoff(attempt), honoring context cancellation.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Backoff(attempt)):
		return nil
	}
}
