package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clock.now), WithCleanupInterval(0))
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStore_GetSetTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 60))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	clock.advance(61 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	ok, err := s.SetNX(ctx, "k", []byte("first"), 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "k", []byte("second"), 10)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := s.Get(ctx, "k")
	assert.Equal(t, "first", string(v))

	clock.advance(11 * time.Second)
	ok, err = s.SetNX(ctx, "k", []byte("third"), 10)
	require.NoError(t, err)
	assert.True(t, ok, "expired entry can be replaced")
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestMemoryStore_SortedSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.ZIncrBy(ctx, "trending", 2, "b"))
	require.NoError(t, s.ZIncrBy(ctx, "trending", 1, "b"))
	require.NoError(t, s.ZAdd(ctx, "trending", 3, "a"))
	require.NoError(t, s.ZAdd(ctx, "trending", 5, "c"))

	members, err := s.ZRange(ctx, "trending", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, members)

	top, err := s.ZRange(ctx, "trending", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, top)

	score, err := s.ZScore(ctx, "trending", "b")
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
}

func TestMemoryStore_HashAndKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.HSet(ctx, "feedback:u1", "c1", []byte("helpful")))
	all, err := s.HGetAll(ctx, "feedback:u1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"c1": []byte("helpful")}, all)

	require.NoError(t, s.Set(ctx, "recommendations:u1:hybrid", []byte("x")))
	require.NoError(t, s.Set(ctx, "recommendations:u2:hybrid", []byte("y")))
	assert.Equal(t, []string{"recommendations:u1:hybrid"}, s.Keys("recommendations:u1:"))
}
