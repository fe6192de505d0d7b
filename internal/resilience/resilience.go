// Package resilience wraps outbound provider calls with bounded retries and
// failure classification.
package resilience

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/benithors/dotquote/internal/serrors"
)

// Policy retries a call at most Retries extra times with a fixed Backoff.
// Only errors accepted by Retryable (Transient by default) are retried.
type Policy struct {
	Retries   uint64
	Backoff   time.Duration
	Retryable func(error) bool
}

// Do runs fn under the policy and returns the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	b := retry.WithMaxRetries(p.Retries, retry.NewConstant(backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Classify maps err to a semantic kind. Errors that already carry a kind keep
// it; deadline and net timeouts become ErrTimeout; everything else is treated
// as ErrUnavailable.
func Classify(err error) serrors.Kind {
	if err == nil {
		return nil
	}
	if k := serrors.KindOf(err); k != nil {
		return k
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return serrors.ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return serrors.ErrTimeout
	}
	return serrors.ErrUnavailable
}

// Transient reports whether err is worth retrying. Rate limits are not: a
// retry would only add load to a provider that asked us to back off.
func Transient(err error) bool {
	switch Classify(err) {
	case serrors.ErrTimeout, serrors.ErrUnavailable:
		return !errors.Is(err, context.Canceled)
	default:
		return false
	}
}

// Tag returns err with its classified kind attached, leaving already tagged
// errors untouched.
func Tag(err error, msgFmt string, args ...any) error {
	if err == nil {
		return nil
	}
	if serrors.KindOf(err) != nil {
		return err
	}
	return serrors.Wrap(Classify(err), err, msgFmt, args...)
}
