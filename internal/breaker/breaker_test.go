package breaker

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAfterMaxErrors(t *testing.T) {
	mock := clock.NewMock()
	b := New(3, 60*time.Second, 30*time.Second, mock)

	assert.False(t, b.IsBlocked("example.com"))
	b.RecordError("example.com")
	b.RecordError("example.com")
	assert.False(t, b.IsBlocked("example.com"))
	b.RecordError("example.com")
	assert.True(t, b.IsBlocked("example.com"))
}

func TestBreakerResetsAfterTimeout(t *testing.T) {
	mock := clock.NewMock()
	b := New(2, 60*time.Second, 10*time.Second, mock)

	b.RecordError("x.com")
	b.RecordError("x.com")
	assert.True(t, b.IsBlocked("x.com"))

	mock.Add(10 * time.Second)
	assert.False(t, b.IsBlocked("x.com"))

	// history was cleared, so one more error should not re-trip immediately
	b.RecordError("x.com")
	assert.False(t, b.IsBlocked("x.com"))
}

func TestBreakerEvictsErrorsOutsideWindow(t *testing.T) {
	mock := clock.NewMock()
	b := New(2, 5*time.Second, 10*time.Second, mock)

	b.RecordError("y.com")
	mock.Add(6 * time.Second)
	b.RecordError("y.com")

	assert.False(t, b.IsBlocked("y.com"))
}

func TestBreakerIsPerHost(t *testing.T) {
	mock := clock.NewMock()
	b := New(1, time.Minute, time.Minute, mock)

	b.RecordError("a.com")
	assert.True(t, b.IsBlocked("a.com"))
	assert.False(t, b.IsBlocked("b.com"))
}
