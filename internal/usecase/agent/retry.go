package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// Retry defaults for reasoning calls.
const (
	DefaultRetries           = 1
	DefaultBackoff           = 250 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultCallTimeout       = 3 * time.Second
)

// RetryPolicy bounds attempts at a reasoning call. Each attempt runs under
// its own CallTimeout; waits between attempts grow by Multiplier.
type RetryPolicy struct {
	Retries     int
	Backoff     time.Duration
	Multiplier  float64
	CallTimeout time.Duration
}

// DefaultRetryPolicy returns one retry with 250ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:     DefaultRetries,
		Backoff:     DefaultBackoff,
		Multiplier:  DefaultBackoffMultiplier,
		CallTimeout: DefaultCallTimeout,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = DefaultCallTimeout
	}
	return p
}

// callFunc is one reasoning attempt.
type callFunc func(ctx context.Context) (domain.ReasoningResult, error)

// retryHook observes a failed attempt before the next one starts.
type retryHook func(attempt int, err error)

// Do runs fn until it returns usable text or the retries are exhausted.
// It returns the number of attempts made. Whitespace-only output counts as
// ErrReasoningMalformed; errors outside the reasoning taxonomy are reported
// as ErrReasoningTransport.
func (p RetryPolicy) Do(ctx context.Context, fn callFunc, onRetry retryHook) (domain.ReasoningResult, int, error) {
	p = p.normalize()
	wait := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= p.Retries+1; attempt++ {
		res, err := p.attempt(ctx, fn)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err

		if attempt > p.Retries {
			break
		}
		if ctx.Err() != nil {
			return domain.ReasoningResult{}, attempt, lastErr
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return domain.ReasoningResult{}, attempt, lastErr
		}
		wait = time.Duration(float64(wait) * p.Multiplier)
	}
	return domain.ReasoningResult{}, p.Retries + 1, lastErr
}

func (p RetryPolicy) attempt(ctx context.Context, fn callFunc) (domain.ReasoningResult, error) {
	cctx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()

	res, err := fn(cctx)
	if err != nil {
		if domain.IsReasoningError(err) {
			return domain.ReasoningResult{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ReasoningResult{}, fmt.Errorf("%w: %w", domain.ErrReasoningTimeout, err)
		}
		return domain.ReasoningResult{}, fmt.Errorf("%w: %w", domain.ErrReasoningTransport, err)
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return domain.ReasoningResult{}, fmt.Errorf("%w: empty completion", domain.ErrReasoningMalformed)
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
