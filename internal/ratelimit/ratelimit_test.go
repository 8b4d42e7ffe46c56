package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestAcquireEnforcesMinimumInterval(t *testing.T) {
	mock := clock.NewMock()
	l := New(Config{RequestsPerSecond: 2}, mock) // interval = 500ms

	done := make(chan time.Duration, 1)
	go func() {
		start := mock.Now()
		l.Acquire("a.com", 0)
		l.Acquire("a.com", 0)
		done <- mock.Since(start)
	}()

	time.Sleep(5 * time.Millisecond)
	mock.Add(time.Second)

	elapsed := <-done
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}

func TestAcquireHonorsMinDelayOverRPS(t *testing.T) {
	mock := clock.NewMock()
	l := New(Config{RequestsPerSecond: 100, MinDelay: 300 * time.Millisecond}, mock)
	assert.Equal(t, 300*time.Millisecond, l.interval)
}

func TestAcquireAddsExtraCrawlDelay(t *testing.T) {
	mock := clock.NewMock()
	l := New(Config{RequestsPerSecond: 1000}, mock)

	done := make(chan struct{})
	go func() {
		l.Acquire("a.com", 0)
		l.Acquire("a.com", 200*time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	mock.Add(time.Second)
	<-done
}

func TestAcquireIsIndependentPerHost(t *testing.T) {
	mock := clock.NewMock()
	l := New(Config{RequestsPerSecond: 1}, mock) // interval = 1s

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); l.Acquire("a.com", 0) }()
	go func() { defer wg.Done(); l.Acquire("b.com", 0) }()
	time.Sleep(5 * time.Millisecond)
	wg.Wait() // both hosts had zero prior last-call, so no sleep needed
}
