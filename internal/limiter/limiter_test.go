package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireBoundsGlobalConcurrency(t *testing.T) {
	l := New(2, 10)
	var inFlight, maxSeen int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "http://host-a/")
			require.NoError(t, err)
			defer release()
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if cur <= m || atomic.CompareAndSwapInt32(&maxSeen, m, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(maxSeen), 2)
}

func TestAcquireBoundsPerDomainConcurrency(t *testing.T) {
	l := New(100, 1)
	var inFlight, maxSeen int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "http://same-host/")
			require.NoError(t, err)
			defer release()
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if cur <= m || atomic.CompareAndSwapInt32(&maxSeen, m, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestReleaseRestoresPermitsOnTermination(t *testing.T) {
	l := New(3, 3)
	for i := 0; i < 5; i++ {
		release, err := l.Acquire(context.Background(), "http://host/")
		require.NoError(t, err)
		release()
		release() // idempotent: a double-release must not corrupt the semaphore
	}
	assert.Equal(t, 3, l.Stats().GlobalAvailable)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := New(1, 1)
	release, err := l.Acquire(context.Background(), "http://host/")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "http://host/")
	assert.Error(t, err)
}

func TestDifferentHostsGetIndependentSemaphores(t *testing.T) {
	l := New(10, 1)
	r1, err := l.Acquire(context.Background(), "http://a.com/")
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(context.Background(), "http://b.com/")
	require.NoError(t, err)
	defer r2()

	assert.Equal(t, 2, l.Stats().DomainsTracked)
}
