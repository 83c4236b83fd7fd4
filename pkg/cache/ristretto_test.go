package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rc, ok := c.(*RistrettoCache)
	require.True(t, ok)
	return rc
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	ok := c.Set("key", "value", 10*time.Second)
	require.True(t, ok)
	c.Wait()

	got, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, "value", got)
}

func TestRistrettoCache_MissingKey(t *testing.T) {
	c := newTestCache(t)

	_, found := c.Get("nope")
	assert.False(t, found)
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("ephemeral", 42, 200*time.Millisecond)
	c.Wait()

	_, found := c.Get("ephemeral")
	require.True(t, found)

	time.Sleep(400 * time.Millisecond)

	_, found = c.Get("ephemeral")
	assert.False(t, found)
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("key", "value", 10*time.Second)
	c.Wait()
	c.Delete("key")

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestRistrettoCache_LastWriterWins(t *testing.T) {
	c := newTestCache(t)

	c.Set("key", "first", 10*time.Second)
	c.Wait()
	c.Set("key", "second", 10*time.Second)
	c.Wait()

	got, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, "second", got)
}
