// Package ratelimit implements the per-host pacing of §4.4: the minimum
// inter-request interval is max(1/requests_per_second, min_delay), with a
// uniform jitter added on top, and a single per-host lock so a host's
// acquisitions serialize while different hosts proceed concurrently.
// Modeled on the source's crawler/rate_limiter.py.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter paces requests per host.
type Limiter struct {
	interval time.Duration
	jitter   time.Duration
	clock    clock.Clock

	mu    sync.Mutex // guards the host map itself, not the sleep
	hosts map[string]*hostLock
}

type hostLock struct {
	mu       sync.Mutex
	lastCall time.Time
}

// Config is the construction-time configuration for a Limiter.
type Config struct {
	RequestsPerSecond float64
	MinDelay          time.Duration
	Jitter            time.Duration
}

// New builds a Limiter from cfg. clk may be nil to use the real wall clock.
func New(cfg Config, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1.0
	}
	interval := time.Duration(float64(time.Second) / rps)
	if cfg.MinDelay > interval {
		interval = cfg.MinDelay
	}
	return &Limiter{
		interval: interval,
		jitter:   cfg.Jitter,
		clock:    clk,
		hosts:    make(map[string]*hostLock),
	}
}

func (l *Limiter) hostLockFor(host string) *hostLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	hl, ok := l.hosts[host]
	if !ok {
		hl = &hostLock{}
		l.hosts[host] = hl
	}
	return hl
}

// Acquire blocks until host may issue its next request, honoring the
// computed interval plus jitter. extraDelay (robots.txt Crawl-delay, §6) is
// added to the computed wait, not taken as a floor, per the canonical rule
// in spec.md §9's Open Questions.
func (l *Limiter) Acquire(host string, extraDelay time.Duration) {
	hl := l.hostLockFor(host)

	hl.mu.Lock()
	defer hl.mu.Unlock()

	now := l.clock.Now()
	wait := l.interval - now.Sub(hl.lastCall)
	if wait < 0 {
		wait = 0
	}
	if l.jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(l.jitter)))
	}
	wait += extraDelay

	if wait > 0 {
		l.clock.Sleep(wait)
	}
	hl.lastCall = l.clock.Now()
}
