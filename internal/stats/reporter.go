package stats

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"
)

// FrontierSizer reports how many items remain queued, used by Reporter to
// apply the two-consecutive-empty-samples termination rule.
type FrontierSizer interface {
	Size() int
}

// Reporter periodically logs a progress line and signals Done once the
// frontier has been observed empty across two consecutive sampling
// intervals, per §4.9's termination rule (covering the race where a worker
// is between popping its last item and enqueueing the links it discovers).
type Reporter struct {
	counters *Counters
	frontier FrontierSizer
	interval time.Duration
	clock    clock.Clock
	logger   *log.Logger

	done chan struct{}
}

// NewReporter builds a Reporter. A nil logger falls back to log.Default().
func NewReporter(counters *Counters, frontier FrontierSizer, interval time.Duration, clk clock.Clock, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Reporter{
		counters: counters,
		frontier: frontier,
		interval: interval,
		clock:    clk,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Run blocks, logging a progress line every interval, until either ctx is
// cancelled or the frontier has been observed empty on two consecutive
// samples. Done is always closed before Run returns.
func (r *Reporter) Run(ctx context.Context) {
	defer close(r.done)

	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	consecutiveEmpty := 0

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			summary := r.counters.Snapshot(now)
			r.logger.Println(summary.ProgressLine())

			if r.frontier.Size() == 0 {
				consecutiveEmpty++
			} else {
				consecutiveEmpty = 0
			}
			if consecutiveEmpty >= 2 {
				return
			}
		}
	}
}

// Done returns a channel closed once Run has returned.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}
