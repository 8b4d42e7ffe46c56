package sink

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devctx/asyncrawler/internal/messaging"
)

type recordingSink struct {
	mu      sync.Mutex
	saved   []Record
	closed  bool
	saveErr error
}

func (s *recordingSink) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.saved...)
}

func TestBusSinkDeliversRecordsToUnderlyingSink(t *testing.T) {
	dest := &recordingSink{}
	bus := NewBusSink(messaging.NewChannelQueue(8), dest, nil)

	require.NoError(t, bus.Save(sampleRecord("https://example.com/a")))
	require.NoError(t, bus.Save(sampleRecord("https://example.com/b")))
	require.NoError(t, bus.Close())

	saved := dest.snapshot()
	assert.Len(t, saved, 2)
	assert.True(t, dest.closed)
}

func TestBusSinkFlushesBeforeClosing(t *testing.T) {
	dest := &recordingSink{}
	bus := NewBusSink(messaging.NewChannelQueue(8), dest, nil)

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Save(sampleRecord("https://example.com/page")))
	}
	require.NoError(t, bus.Close())

	assert.Len(t, dest.snapshot(), 20)
}

func TestBusSinkCloseIsIdempotent(t *testing.T) {
	dest := &recordingSink{}
	bus := NewBusSink(messaging.NewChannelQueue(1), dest, nil)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.Eventually(t, func() bool { return dest.closed }, time.Second, time.Millisecond)
}
