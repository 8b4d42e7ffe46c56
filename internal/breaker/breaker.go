// Package breaker implements the per-host circuit breaker of §4.7: a sliding
// window of error timestamps per host that trips a cooldown once the error
// count within the window reaches max_errors. Modeled on the source's
// crawler/circuit_breaker.py, translated from a defaultdict(deque) into a
// mutex-guarded map since Go workers run as real goroutines rather than
// single-threaded coroutines (§5).
package breaker

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type hostState struct {
	errors    []time.Time
	unblockAt time.Time
	blocked   bool
}

// Breaker quarantines hosts that accumulate too many errors too quickly.
type Breaker struct {
	maxErrors    int
	window       time.Duration
	resetTimeout time.Duration
	clock        clock.Clock

	mu    sync.Mutex
	hosts map[string]*hostState
}

// New builds a Breaker. clk may be nil to use the real wall clock.
func New(maxErrors int, window, resetTimeout time.Duration, clk clock.Clock) *Breaker {
	if clk == nil {
		clk = clock.New()
	}
	return &Breaker{
		maxErrors:    maxErrors,
		window:       window,
		resetTimeout: resetTimeout,
		clock:        clk,
		hosts:        make(map[string]*hostState),
	}
}

// RecordError appends an error timestamp for host, evicts entries older than
// the window, and trips the breaker once max_errors remain in-window.
func (b *Breaker) RecordError(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.stateLocked(host)
	now := b.clock.Now()
	st.errors = append(st.errors, now)
	st.errors = evictOlderThan(st.errors, now, b.window)

	if len(st.errors) >= b.maxErrors {
		st.unblockAt = now.Add(b.resetTimeout)
		st.blocked = true
	}
}

// IsBlocked reports whether host is currently quarantined. Once the cooldown
// has elapsed it clears the block and the error history in the same call,
// matching the Python is_blocked's lazy reset.
func (b *Breaker) IsBlocked(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.hosts[host]
	if !ok || !st.blocked {
		return false
	}

	if b.clock.Now().Before(st.unblockAt) {
		return true
	}

	st.blocked = false
	st.errors = nil
	return false
}

func (b *Breaker) stateLocked(host string) *hostState {
	st, ok := b.hosts[host]
	if !ok {
		st = &hostState{}
		b.hosts[host] = st
	}
	return st
}

func evictOlderThan(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := 0
	for cut < len(ts) && now.Sub(ts[cut]) > window {
		cut++
	}
	if cut == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[cut:]...)
}
