package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_SetGet(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	defer c.Close()

	c.Set("a", 1)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTL_ExpiredEntryIsMiss(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	defer c.Close()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("a", 1)

	c.now = func() time.Time { return base.Add(59 * time.Second) }
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTL_SetRestartsTTL(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	defer c.Close()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("a", 1)

	c.now = func() time.Time { return base.Add(50 * time.Second) }
	c.Set("a", 2)

	c.now = func() time.Time { return base.Add(90 * time.Second) }
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTTL_EvictExpired(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	defer c.Close()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("a", 1)
	c.Set("b", 2)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.evictExpired()

	assert.Equal(t, 0, c.Len())
}
