package rag

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
)

// #region policy

// Policy bounds generation retries. After failed attempt n (from 0) the
// invoker waits BaseDelay * 2^n, capped at MaxDelay when MaxDelay > 0.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns 3 attempts with waits of 1s, 2s and 4s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Validate rejects policies the backoff cannot run with.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return faults.Configf("retry max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return faults.Configf("retry base delay must be > 0, got %s", p.BaseDelay)
	}
	if p.MaxDelay < 0 {
		return faults.Configf("retry max delay must be >= 0, got %s", p.MaxDelay)
	}
	return nil
}

// Backoff returns a fresh schedule yielding exactly MaxAttempts delays.
// Call Validate first; go-retry panics on a non-positive base.
func (p Policy) Backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.MaxAttempts), b)
}

// Delays lists the full wait schedule of the policy.
func (p Policy) Delays() []time.Duration {
	b := p.Backoff()
	var out []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			return out
		}
		out = append(out, d)
	}
}

// #endregion policy

// #region sleeper

// Sleeper waits between attempts. Sleep must return ctx.Err() promptly when
// ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper waits on a timer or the context, whichever comes first.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion sleeper

// #region transient

// IsTransient reports whether a generation error is worth retrying.
// Cancellation and request-shape gRPC codes are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated,
		codes.FailedPrecondition, codes.Unimplemented, codes.NotFound:
		return false
	}
	return true
}

// #endregion transient
