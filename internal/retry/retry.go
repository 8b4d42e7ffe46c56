// Package retry implements the per-error-kind retry strategy of §4.6: each
// registered error kind gets its own {max_retries, backoff_factor} budget,
// attempts within a single call are counted independently per kind, and an
// observer callback is invoked on every retry. Unregistered kinds propagate
// immediately, matching the source's retry_strategy.py.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/devctx/asyncrawler/internal/ferrors"
)

// Policy is the {max_retries, backoff_factor} pair registered for a kind.
type Policy struct {
	MaxRetries    int
	BackoffFactor float64
}

// OnRetry is invoked with (error, attempt, kind, delay, url) on every retry,
// mirroring the Python strategy's on_retry(exc, attempt, exc_type, delay, url).
type OnRetry func(err *ferrors.FetchError, attempt int, kind ferrors.Kind, delay time.Duration, url string)

// Strategy maps error kinds to retry policies and drives backoff sleeps.
type Strategy struct {
	policies map[ferrors.Kind]Policy
	onRetry  OnRetry
	clock    clock.Clock

	mu   sync.Mutex
	rand *rand.Rand
}

// New builds a Strategy from a kind->policy table. clk may be nil, in which
// case the real wall clock is used; tests inject a mock clock to avoid
// sleeping.
func New(policies map[ferrors.Kind]Policy, onRetry OnRetry, clk clock.Clock) *Strategy {
	if clk == nil {
		clk = clock.New()
	}
	return &Strategy{
		policies: policies,
		onRetry:  onRetry,
		clock:    clk,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do executes fn, retrying on registered *ferrors.FetchError kinds until the
// kind's budget is exhausted or a non-FetchError / unregistered-kind error is
// returned. url is only used for the OnRetry callback.
//
// Counters are per-kind: a call that alternates between transient and
// network errors spends each kind's own budget rather than one shared
// counter, matching the Python implementation's dict of attempt counts.
func (s *Strategy) Do(ctx context.Context, url string, fn func() error) error {
	attempts := make(map[ferrors.Kind]int, len(s.policies))

	for {
		err := fn()
		if err == nil {
			return nil
		}

		fe, ok := err.(*ferrors.FetchError)
		if !ok {
			return err
		}

		policy, registered := s.policies[fe.Kind]
		if !registered {
			return err
		}

		attempts[fe.Kind]++
		attempt := attempts[fe.Kind]

		if attempt > policy.MaxRetries {
			return err
		}

		delay := s.backoffDelay(policy.BackoffFactor, attempt)
		if s.onRetry != nil {
			s.onRetry(fe, attempt, fe.Kind, delay, url)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
	}
}

// backoffDelay computes backoff_factor^(attempt-1) + uniform(0, 0.5) seconds.
func (s *Strategy) backoffDelay(backoffFactor float64, attempt int) time.Duration {
	base := pow(backoffFactor, attempt-1)

	s.mu.Lock()
	jitter := s.rand.Float64() * 0.5
	s.mu.Unlock()

	return time.Duration((base + jitter) * float64(time.Second))
}

func pow(base float64, exp int) float64 {
	if exp <= 0 {
		return 1
	}
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
