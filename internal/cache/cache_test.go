package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestTTL_ExpiresAfterTTL(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, int](time.Minute, clk)

	require.True(t, c.Set("a", 1, c.Generation()))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok, "entry should still be fresh")

	clk.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire exactly at ttl")
	assert.Equal(t, 0, c.size())
}

func TestTTL_Purge(t *testing.T) {
	c := New[string, int](time.Hour, &fakeClock{now: time.Unix(0, 0)})
	gen := c.Generation()
	c.Set("a", 1, gen)
	c.Set("b", 2, gen)

	c.Purge()
	assert.Equal(t, 0, c.size())
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, gen+1, c.Generation())
}

// A value loaded before a purge must not come back after it.
func TestTTL_SetAfterPurgeIsDropped(t *testing.T) {
	c := New[string, int](time.Hour, &fakeClock{now: time.Unix(0, 0)})

	gen := c.Generation()
	c.Purge()
	assert.False(t, c.Set("a", 1, gen))
	_, ok := c.Get("a")
	assert.False(t, ok)

	assert.True(t, c.Set("a", 2, c.Generation()))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_ZeroTTLDisablesCaching(t *testing.T) {
	c := New[string, int](0, nil)
	assert.False(t, c.Set("a", 1, c.Generation()))
	_, ok := c.Get("a")
	assert.False(t, ok)
}
