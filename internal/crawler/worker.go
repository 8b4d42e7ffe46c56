package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/devctx/asyncrawler/internal/ferrors"
	"github.com/devctx/asyncrawler/internal/frontier"
	"github.com/devctx/asyncrawler/internal/parser"
	"github.com/devctx/asyncrawler/internal/sink"
)

// workerPool runs settings.MaxConcurrent workers racing on the crawler's
// shared frontier, implementing the per-URL state machine of §4.9: each
// worker pops, checks visited, runs the fetch_url pipeline (circuit check →
// robots check → rate limit → crawl-delay sleep → limiter → retry), then
// parses and enqueues discovered links.
type workerPool struct {
	c *Crawler
}

func newWorkerPool(c *Crawler) *workerPool {
	return &workerPool{c: c}
}

// run spawns c.settings.MaxConcurrent workers and blocks until all of them
// have exited, either because the frontier emptied or the page budget was
// reached.
func (p *workerPool) run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.c.settings.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx)
		}()
	}
	wg.Wait()
}

// loop is a single worker's main loop: while the page budget isn't
// exhausted and the frontier has items, pop and process one. It exits when
// next() returns empty or the context is cancelled, matching §4.9's
// "a worker exits when next() returns empty" with the added budget check
// from the same paragraph.
func (p *workerPool) loop(ctx context.Context) {
	c := p.c
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if c.state.VisitedCount() >= c.settings.MaxPages {
			return
		}

		item, ok := c.frontier.Next()
		if !ok {
			return
		}

		if !c.state.MarkVisited(item.URL) {
			continue
		}

		p.process(ctx, item)
	}
}

// process runs the full fetch_url pipeline for one frontier item and, on
// success, enqueues its discovered links.
func (p *workerPool) process(ctx context.Context, item frontier.Item) {
	c := p.c

	host := hostOf(item.URL)

	if c.breaker.IsBlocked(host) {
		c.state.RecordFailed(item.URL, ferrors.Blocked)
		return
	}

	if c.settings.RespectRobots && !c.robots.Allowed(item.URL) {
		c.state.RecordBlockedByRobots(item.URL)
		return
	}

	crawlDelay := time.Duration(0)
	if c.settings.RespectRobots {
		crawlDelay = c.robots.CrawlDelay(item.URL)
	}
	c.pacing.Acquire(host, crawlDelay)

	release, err := c.limits.Acquire(ctx, item.URL)
	if err != nil {
		c.state.RecordFailed(item.URL, err.Error())
		return
	}
	defer release()

	attempts := 0
	var result *httpfetchResult
	err = c.retrier.Do(ctx, item.URL, func() error {
		attempts++
		res, fetchErr := c.fetcher.Fetch(ctx, item.URL)
		if fetchErr != nil {
			return fetchErr
		}
		result = &httpfetchResult{body: res.Body, statusCode: res.StatusCode, contentType: res.ContentType, elapsed: res.Elapsed, bytesRead: res.BytesRead}
		return nil
	})

	if err != nil {
		p.recordFetchFailure(item.URL, host, err)
		return
	}

	if attempts > 1 {
		c.counters.RecordSuccessAfterRetry()
	}
	c.counters.RecordSuccess(result.bytesRead, result.elapsed)

	record, parseErr := parser.Parse(result.body, item.URL)
	if parseErr != nil {
		c.state.RecordFailed(item.URL, parseErr.Error())
		return
	}

	c.state.RecordProcessed(item.URL)
	if c.sink != nil {
		saved := sink.FromPageRecord(record, result.statusCode, result.contentType, c.settings.Clock.Now())
		_ = c.sink.Save(saved)
	}

	p.enqueueLinks(record, item.Depth)
}

// recordFetchFailure classifies a failed fetch into State.failed. Permanent
// errors are recorded without touching the circuit breaker; transient and
// network errors that exhausted their retry budget increment the host's
// breaker counter, per §7.
func (p *workerPool) recordFetchFailure(rawURL, host string, err error) {
	fe, ok := err.(*ferrors.FetchError)
	if !ok {
		p.c.state.RecordFailed(rawURL, err.Error())
		return
	}

	p.c.state.RecordFailed(rawURL, fe.Error())
	p.c.counters.RecordFailure(rawURL, fe.Kind)
	if fe.Kind != ferrors.KindPermanent {
		p.c.breaker.RecordError(host)
	}
}

// enqueueLinks normalizes and filters every link in record, enqueueing
// survivors at depth+1 when that does not exceed max_depth.
func (p *workerPool) enqueueLinks(record *parser.PageRecord, depth int) {
	c := p.c
	if depth+1 > c.settings.MaxDepth {
		return
	}

	base, err := url.Parse(record.URL)
	if err != nil {
		return
	}

	for _, link := range record.Links {
		canonical, ok := c.filter.NormalizeAndFilter(link, base)
		if !ok {
			continue
		}
		c.frontier.Add(canonical, depth+1)
	}
}

// httpfetchResult is the subset of httpfetch.Result the worker loop needs,
// captured inside the retry closure.
type httpfetchResult struct {
	body        []byte
	statusCode  int
	contentType string
	elapsed     time.Duration
	bytesRead   int64
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
