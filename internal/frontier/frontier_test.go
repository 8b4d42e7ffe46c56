package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeduplicatesBySeenSet(t *testing.T) {
	f := New()
	f.Add("http://a/", 0)
	f.Add("http://a/", 5) // second add at a different depth: still a no-op
	assert.Equal(t, 1, f.TotalAdded())
	assert.Equal(t, 1, f.Size())
}

func TestNextReturnsLowestDepthFirst(t *testing.T) {
	f := New()
	f.Add("http://depth2/", 2)
	f.Add("http://depth0/", 0)
	f.Add("http://depth1/", 1)

	it, ok := f.Next()
	require.True(t, ok)
	assert.Equal(t, "http://depth0/", it.URL)

	it, ok = f.Next()
	require.True(t, ok)
	assert.Equal(t, "http://depth1/", it.URL)

	it, ok = f.Next()
	require.True(t, ok)
	assert.Equal(t, "http://depth2/", it.URL)
}

func TestNextOnEmptyFrontierDoesNotBlock(t *testing.T) {
	f := New()
	_, ok := f.Next()
	assert.False(t, ok)
}

func TestFIFOAmongEqualDepths(t *testing.T) {
	f := New()
	f.Add("http://first/", 0)
	f.Add("http://second/", 0)

	it, _ := f.Next()
	assert.Equal(t, "http://first/", it.URL)
	it, _ = f.Next()
	assert.Equal(t, "http://second/", it.URL)
}

func TestSeenTracksAllEverAdmitted(t *testing.T) {
	f := New()
	f.Add("http://a/", 0)
	_, _ = f.Next()
	assert.True(t, f.Seen("http://a/"))
	assert.False(t, f.Seen("http://b/"))
}
