// Package stats accumulates crawl counters and periodically reports
// progress, per §4.9. Grounded on the source's crawler/stats_exporter.py and
// utils/stats.py (get_summary / compute_overall_stats), reworked from a
// single-threaded Python object into a Go aggregate guarded by its own
// mutex, with
// human-readable progress lines formatted via dustin/go-humanize the way the
// source formats its printed summaries.
package stats

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/devctx/asyncrawler/internal/ferrors"
)

// Counters holds the raw crawl counters, safe for concurrent use.
type Counters struct {
	mu sync.Mutex

	pagesFetched      int
	pagesFailed       int
	bytesDownloaded   int64
	errorsByKind      map[ferrors.Kind]int
	successAfterRetry int
	retryDelays       []time.Duration
	requestDurations  []time.Duration
	permanentFailed   []string
	started           time.Time
}

// New returns an empty Counters, stamped with the current time as the crawl
// start.
func New(now time.Time) *Counters {
	return &Counters{
		errorsByKind: make(map[ferrors.Kind]int),
		started:      now,
	}
}

// RecordSuccess records one successfully fetched page.
func (c *Counters) RecordSuccess(bytesRead int64, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagesFetched++
	c.bytesDownloaded += bytesRead
	c.requestDurations = append(c.requestDurations, elapsed)
}

// RecordRetry records one retried attempt, its classification, and the
// delay that was applied before it.
func (c *Counters) RecordRetry(kind ferrors.Kind, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorsByKind[kind]++
	c.retryDelays = append(c.retryDelays, delay)
}

// RecordSuccessAfterRetry records that a page ultimately succeeded only
// after one or more retries.
func (c *Counters) RecordSuccessAfterRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successAfterRetry++
}

// RecordFailure records a URL that failed terminally — either immediately
// (a permanent error) or after exhausting its retry budget — along with its
// error kind.
func (c *Counters) RecordFailure(url string, kind ferrors.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagesFailed++
	c.errorsByKind[kind]++
	c.permanentFailed = append(c.permanentFailed, url)
}

// Summary is a point-in-time snapshot of the counters, suitable for JSON
// export or a progress line.
type Summary struct {
	PagesFetched      int
	PagesFailed       int
	BytesDownloaded   int64
	ErrorsByKind      map[ferrors.Kind]int
	SuccessAfterRetry int
	PermanentFailed   []string
	Elapsed           time.Duration
	AvgRequestTime    time.Duration
}

// Snapshot returns a Summary as of now.
func (c *Counters) Snapshot(now time.Time) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	errCopy := make(map[ferrors.Kind]int, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		errCopy[k] = v
	}
	failedCopy := append([]string(nil), c.permanentFailed...)

	return Summary{
		PagesFetched:      c.pagesFetched,
		PagesFailed:       c.pagesFailed,
		BytesDownloaded:   c.bytesDownloaded,
		ErrorsByKind:      errCopy,
		SuccessAfterRetry: c.successAfterRetry,
		PermanentFailed:   failedCopy,
		Elapsed:           now.Sub(c.started),
		AvgRequestTime:    avgDuration(c.requestDurations),
	}
}

func avgDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// PagesFetched returns the current fetched-page count. The orchestrator's
// max_pages check uses the visited count instead, not this value.
func (c *Counters) PagesFetched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagesFetched
}

// ProgressLine renders a Summary as a single human-readable line, matching
// the source's periodic console summary but formatted with go-humanize
// instead of hand-rolled number formatting.
func (s Summary) ProgressLine() string {
	return humanize.Comma(int64(s.PagesFetched)) + " pages fetched, " +
		humanize.Comma(int64(s.PagesFailed)) + " failed, " +
		humanize.Bytes(uint64(s.BytesDownloaded)) + " downloaded, " +
		"elapsed " + s.Elapsed.Round(time.Second).String()
}
