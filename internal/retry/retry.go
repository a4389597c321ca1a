// Package retry wraps bounded exponential-backoff retry around outbound HTTP
// operations. It is stateless: a Config can be shared across concurrent calls.
package retry

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Config bounds a retry ladder. Delay grows geometrically:
// BaseDelay, BaseDelay*Multiplier, BaseDelay*Multiplier^2, ...
type Config struct {
	Attempts   uint
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultConfig is the ladder used for most outbound calls: 1s, 2s, 4s.
var DefaultConfig = Config{Attempts: 3, BaseDelay: time.Second, Multiplier: 2}

// HTTPError is a non-2xx response surfaced as an error so retry policy can
// classify it. RetryAfter carries a server-provided Retry-After value for 429s.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// Exhausted is returned when the operation did not succeed. Attempts is the
// number actually made, which is below the budget when the error was
// classified non-retryable. It carries the last observed error (and status,
// when the failure was HTTP-level).
type Exhausted struct {
	Attempts   uint
	LastStatus int
	Err        error
}

func (e *Exhausted) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Exhausted) Unwrap() error { return e.Err }

// RetryableHTTP reports whether err is worth retrying: 5xx, 429, and
// connection-level errors are; other 4xx (including 401, which the token
// layer handles separately) are not.
func RetryableHTTP(err error) bool {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status == http.StatusTooManyRequests || herr.Status >= 500
	}
	// Non-HTTP errors are connection-level failures.
	return true
}

// Do runs op under cfg, retrying while retryable(err) is true. Context
// cancellation aborts both the operation and any pending backoff wait.
// A 429 carrying Retry-After overrides the computed delay for that step.
func Do(op func() error, retryable func(error) bool, cfg Config, opts ...retry.Option) error {
	if cfg.Attempts == 0 {
		cfg = DefaultConfig
	}

	options := []retry.Option{
		retry.Attempts(cfg.Attempts),
		retry.RetryIf(retryable),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			return cfg.delayFor(n, err)
		}),
		retry.LastErrorOnly(true),
	}
	options = append(options, opts...)

	var attempts uint
	err := retry.Do(func() error {
		attempts++
		return op()
	}, options...)
	if err == nil {
		return nil
	}

	ex := &Exhausted{Attempts: attempts, Err: err}
	var herr *HTTPError
	if errors.As(err, &herr) {
		ex.LastStatus = herr.Status
	}
	return ex
}

// delayFor computes the wait before attempt n+1. n is zero-based, so the
// first wait is BaseDelay.
func (c Config) delayFor(n uint, err error) time.Duration {
	var herr *HTTPError
	if errors.As(err, &herr) && herr.Status == http.StatusTooManyRequests && herr.RetryAfter > 0 {
		return herr.RetryAfter
	}

	d := float64(c.BaseDelay)
	for i := uint(0); i < n; i++ {
		d *= c.Multiplier
	}
	return time.Duration(d)
}

// ParseRetryAfter converts a Retry-After header value (delta-seconds form)
// into a duration. Returns 0 when absent or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var secs int
	if _, err := fmt.Sscanf(header, "%d", &secs); err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
