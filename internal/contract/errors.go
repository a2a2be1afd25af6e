package contract

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrCacheMiss      = errors.New("cache miss")
	ErrMissingToken   = errors.New("missing GitHub token: set GITHUB_TOKEN or --github-token")
	ErrNoRepositories = errors.New("no repositories configured")
)

// RateLimitError reports an exhausted upstream quota.
// Callers decide whether to wait until Reset or abort.
type RateLimitError struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Err       error
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("rate limit exceeded: %d/%d remaining, resets at %s",
		e.Remaining, e.Limit, e.Reset.Format(time.RFC3339))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// RetryAfter returns how long to wait from now until the quota resets.
func (e *RateLimitError) RetryAfter(now time.Time) time.Duration {
	if d := e.Reset.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AsRateLimit extracts a *RateLimitError from an error chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsRateLimit reports whether err carries a *RateLimitError.
func IsRateLimit(err error) bool {
	_, ok := AsRateLimit(err)
	return ok
}
