package mailing

import (
	"context"
	"time"
)

// MaxBackoff caps every wait so three attempts stay well under 15 seconds.
const MaxBackoff = 8 * time.Second

// Backoff returns the wait before retry number i (1-based: the wait between
// attempt i and attempt i+1).
type Backoff func(i int) time.Duration

// ExponentialBackoff waits base*2^i, capped at MaxBackoff. With base=1s the
// schedule is 2s, 4s, 8s.
func ExponentialBackoff(base time.Duration) Backoff {
	return func(i int) time.Duration {
		return capped(base << uint(i))
	}
}

// FixedBackoff waits d before every retry.
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return capped(d) }
}

// LinearBackoff waits step*i: 2s, 4s, 6s for step=2s.
func LinearBackoff(step time.Duration) Backoff {
	return func(i int) time.Duration { return capped(step * time.Duration(i)) }
}

func capped(d time.Duration) time.Duration {
	if d > MaxBackoff || d < 0 {
		return MaxBackoff
	}
	return d
}

// RetryPolicy is the single retrying-send primitive shared by delivery and
// the SMTP self-check.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	// Sleep waits d or until ctx is done. Nil uses a real timer; tests
	// inject a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryHooks are optional callbacks invoked by Do.
type RetryHooks struct {
	// OnFailure runs after every failed attempt.
	OnFailure func(attempt int, err error)
	// Recycle runs before the next attempt when the failure was a
	// transport error.
	Recycle func() error
}

// Do runs op until it succeeds, fails permanently, or MaxAttempts is used
// up. It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error, hooks RetryHooks) (int, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = FixedBackoff(2 * time.Second)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if hooks.OnFailure != nil {
			hooks.OnFailure(attempt, lastErr)
		}
		if IsPermanent(lastErr) || attempt == attempts {
			return attempt, lastErr
		}
		if hooks.Recycle != nil && IsTransport(lastErr) {
			// A failed recycle leaves the old session discarded; the next
			// attempt dials fresh anyway.
			_ = hooks.Recycle()
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return attempt, lastErr
		}
	}
	return attempts, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
