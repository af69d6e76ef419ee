package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*ResponseCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewResponseCache(size, ttl)
	c.now = clock.now
	return c, clock
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("a", "b"), HashKey("a", "b"))
	assert.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
	assert.NotEqual(t, HashKey("a\x00", "b"), HashKey("a", "\x00b"))
	assert.NotEqual(t, HashKey("a", ""), HashKey("a"))
	assert.Len(t, HashKey("x"), 64)
}

func TestResponseCache_GetSet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", []byte(`{"ok":true}`), map[string]string{"X-Intake-Decision": "AUTO_QUOTE"}, nil)
	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(e.Response))
	assert.Equal(t, "AUTO_QUOTE", e.Headers["X-Intake-Decision"])
	assert.Nil(t, e.Value)

	c.Get("k")
	assert.Equal(t, 2, c.Stats()["total_hits"])
}

func TestResponseCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("k", []byte("v"), nil, nil)

	clock.t = clock.t.Add(61 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats()["size"])
}

func TestResponseCache_EvictsOldest(t *testing.T) {
	c, clock := newTestCache(2, time.Hour)

	c.Set("first", []byte("1"), nil, nil)
	clock.t = clock.t.Add(time.Second)
	c.Set("second", []byte("2"), nil, nil)
	clock.t = clock.t.Add(time.Second)
	c.Set("third", []byte("3"), nil, nil)

	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestResponseCache_OverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", []byte("1"), nil, nil)
	c.Set("b", []byte("2"), nil, nil)
	c.Set("a", []byte("3"), nil, nil)

	assert.Equal(t, 2, c.Stats()["size"])
	e, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", string(e.Response))
}

func TestResponseCache_Clear(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", []byte("1"), nil, nil)
	c.Clear()
	assert.Equal(t, 0, c.Stats()["size"])
}

func TestResponseCache_KeepsValue(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("k", []byte("{}"), nil, []string{"decoded"})

	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"decoded"}, e.Value)
}
