// Package crawler wires the frontier, limiter, rate limiter, robots cache,
// retry strategy, circuit breaker, fetcher, parser, sink, and stats reporter
// into the worker pool orchestrator described in §4.9. Grounded on the
// teacher's crawler/crawler.go (WebCrawler, CrawlerSettings, the
// options-pattern construction, the semaphore-throttled fetch loop), with
// the single-page/single-domain fan-out of the original restructured into a
// frontier-driven pool of cooperative-in-spirit-but-goroutine-backed
// workers that race on a single shared frontier instead of one root URL
// each.
package crawler

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/devctx/asyncrawler/internal/breaker"
	"github.com/devctx/asyncrawler/internal/ferrors"
	"github.com/devctx/asyncrawler/internal/frontier"
	"github.com/devctx/asyncrawler/internal/httpfetch"
	"github.com/devctx/asyncrawler/internal/limiter"
	"github.com/devctx/asyncrawler/internal/parser"
	"github.com/devctx/asyncrawler/internal/ratelimit"
	"github.com/devctx/asyncrawler/internal/retry"
	"github.com/devctx/asyncrawler/internal/robots"
	"github.com/devctx/asyncrawler/internal/sink"
	"github.com/devctx/asyncrawler/internal/stats"
	"github.com/devctx/asyncrawler/internal/urlfilter"
)

const (
	defaultUserAgent      = "AsyncCrawler/1.0"
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultTotalTimeout   = 15 * time.Second
	defaultGlobalCap      = 100
	defaultPerHostCap     = 10
	defaultKeepAlive      = 30 * time.Second
	defaultMaxErrors      = 5
	defaultBreakerWindow  = time.Minute
	defaultResetTimeout   = 30 * time.Second
	defaultReportInterval = 5 * time.Second
)

// Settings configures a Crawler. Zero-valued fields filled in by
// withDefaults fall back to the defaults named in §6; MaxPages has no
// default, and a zero MaxPages crawls nothing.
type Settings struct {
	UserAgent      string
	MaxPages       int
	MaxDepth       int
	MaxConcurrent  int
	PerHostLimit   int
	RateLimit      float64
	MinDelay       time.Duration
	RespectRobots  bool
	AllowedDomains []string
	IncludeRegex   []string
	ExcludeRegex   []string
	ReportInterval time.Duration
	RetryPolicies  map[ferrors.Kind]retry.Policy
	MaxErrors      int
	BreakerWindow  time.Duration
	ResetTimeout   time.Duration
	Logger         *log.Logger
	Clock          clock.Clock
	HTTPClient     *http.Client
}

// withDefaults fills the zero-valued fields of s with §6's defaults.
func (s Settings) withDefaults() Settings {
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if s.MaxDepth == 0 {
		s.MaxDepth = 3
	}
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = 10
	}
	if s.PerHostLimit == 0 {
		s.PerHostLimit = defaultPerHostCap
	}
	if s.ReportInterval == 0 {
		s.ReportInterval = defaultReportInterval
	}
	if s.MaxErrors == 0 {
		s.MaxErrors = defaultMaxErrors
	}
	if s.BreakerWindow == 0 {
		s.BreakerWindow = defaultBreakerWindow
	}
	if s.ResetTimeout == 0 {
		s.ResetTimeout = defaultResetTimeout
	}
	if s.RetryPolicies == nil {
		s.RetryPolicies = map[ferrors.Kind]retry.Policy{
			ferrors.KindTransient: {MaxRetries: 3, BackoffFactor: 2.0},
			ferrors.KindNetwork:   {MaxRetries: 2, BackoffFactor: 2.0},
		}
	}
	if s.Logger == nil {
		s.Logger = log.New(os.Stderr, "crawler: ", log.LstdFlags)
	}
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.HTTPClient == nil {
		transport := &http.Transport{
			MaxIdleConns:        defaultGlobalCap,
			MaxIdleConnsPerHost: defaultPerHostCap,
			IdleConnTimeout:     defaultKeepAlive,
			DialContext: (&net.Dialer{
				Timeout: defaultConnectTimeout,
			}).DialContext,
		}
		s.HTTPClient = &http.Client{Transport: transport, Timeout: defaultTotalTimeout}
	}
	return s
}

// Crawler is a fully wired crawl pipeline: one call to Run walks the
// frontier from a set of seeds until the page budget or the frontier is
// exhausted.
type Crawler struct {
	settings Settings
	state    *State
	counters *stats.Counters

	frontier *frontier.Frontier
	filter   *urlfilter.Filter
	limits   *limiter.Limiter
	pacing   *ratelimit.Limiter
	robots   *robots.Cache
	breaker  *breaker.Breaker
	retrier  *retry.Strategy
	fetcher  *httpfetch.Fetcher
	sink     sink.Sink
}

// New builds a Crawler from settings and a sink to persist successfully
// parsed pages into.
func New(settings Settings, dest sink.Sink) *Crawler {
	settings = settings.withDefaults()

	counters := stats.New(settings.Clock.Now())

	fetcher := httpfetch.New(settings.HTTPClient, settings.UserAgent)

	return &Crawler{
		settings: settings,
		state:    NewState(),
		counters: counters,
		frontier: frontier.New(),
		filter: urlfilter.New(urlfilter.Config{
			AllowedDomains:  settings.AllowedDomains,
			IncludePatterns: settings.IncludeRegex,
			ExcludePatterns: settings.ExcludeRegex,
		}),
		limits: limiter.New(defaultGlobalCap, settings.PerHostLimit),
		pacing: ratelimit.New(ratelimit.Config{
			RequestsPerSecond: settings.RateLimit,
			MinDelay:          settings.MinDelay,
		}, settings.Clock),
		robots:  robots.New(&http.Client{Timeout: defaultConnectTimeout}, settings.UserAgent),
		breaker: breaker.New(settings.MaxErrors, settings.BreakerWindow, settings.ResetTimeout, settings.Clock),
		retrier: retry.New(settings.RetryPolicies, func(err *ferrors.FetchError, attempt int, kind ferrors.Kind, delay time.Duration, u string) {
			counters.RecordRetry(kind, delay)
		}, settings.Clock),
		fetcher: fetcher,
		sink:    dest,
	}
}

// Run crawls seeds until max_pages URLs have been taken up by workers
// (counted in the visited set, whatever their outcome) or the frontier empties,
// returning once every worker and the progress reporter have exited, per
// §4.9's orchestration contract. The HTTP client and every semaphore are
// fully released before Run returns.
func (c *Crawler) Run(ctx context.Context, seeds []string) error {
	for _, seed := range seeds {
		canonical, ok := c.filter.NormalizeAndFilter(seed, nil)
		if !ok {
			continue
		}
		c.frontier.Add(canonical, 0)
	}

	if c.settings.MaxPages <= 0 {
		return nil
	}

	reportCtx, cancelReport := context.WithCancel(ctx)
	reporter := stats.NewReporter(c.counters, c.frontier, c.settings.ReportInterval, c.settings.Clock, c.settings.Logger)
	go reporter.Run(reportCtx)

	workers := newWorkerPool(c)
	workers.run(ctx)

	cancelReport()
	<-reporter.Done()

	c.settings.HTTPClient.CloseIdleConnections()

	return nil
}

// Processed returns every URL successfully fetched and parsed.
func (c *Crawler) Processed() []string { return c.state.Processed() }

// Failed returns every URL that failed permanently, mapped to its reason.
func (c *Crawler) Failed() map[string]string { return c.state.Failed() }

// BlockedByRobots returns every URL denied by robots policy.
func (c *Crawler) BlockedByRobots() []string { return c.state.BlockedByRobots() }

// Stats returns a snapshot of the crawl's counters as of now.
func (c *Crawler) Stats() stats.Summary { return c.counters.Snapshot(c.settings.Clock.Now()) }

// PageRecord re-exports the parser's result type so callers of this package
// don't need to import internal/parser directly.
type PageRecord = parser.PageRecord
