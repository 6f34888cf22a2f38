package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

const fixtureYAML = `
profiles:
  - user_id: u1
    level: 35
    skills: {preflop: 60, postflop: 40}
  - user_id: u2
    level: 40
    skills: {preflop: 65, postflop: 45}
behaviors:
  - user_id: u2
    interactions:
      - content_id: c1
        category: preflop
        performance_score: 80
        completion_rate: 100
        timestamp: 2026-01-02T10:00:00Z
content:
  - {id: c2, category: postflop, difficulty: 4, estimated_minutes: 20}
  - {id: c1, category: preflop, difficulty: 3, estimated_minutes: 45}
`

func TestMemory_Fixture(t *testing.T) {
	ctx := context.Background()
	m, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	p, err := m.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 35, p.Level)

	_, err = m.GetUserProfile(ctx, "nobody")
	assert.True(t, core.IsNotFound(err))

	b, err := m.GetUserBehavior(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, b.Interactions)

	all, err := m.GetCandidateContent(ctx, core.ContentQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].ID)

	short, err := m.GetCandidateContent(ctx, core.ContentQuery{MaxMinutes: 30})
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "c2", short[0].ID)

	hist, err := m.GetUserHistory(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "c1", hist[0].ContentID)

	neighbors, err := m.GetNeighbors(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "u2", neighbors[0].UserID)
	assert.InDelta(t, 80, neighbors[0].Performance["c1"], 1e-9)
}

func newServer(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTP(srv.URL, srv.URL, time.Second)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	h := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u1/profile":
			_, _ = w.Write([]byte(`{"user_id":"u1","level":42,"skills":{"preflop":70}}`))
		case "/users/u1/behavior", "/users/u1/history":
			http.NotFound(w, r)
		case "/content":
			assert.Equal(t, "preflop,math", r.URL.Query().Get("categories"))
			_, _ = w.Write([]byte(`[{"id":"c1","category":"preflop","difficulty":3}]`))
		case "/users/broken/profile":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	p, err := h.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, p.Level)

	_, err = h.GetUserProfile(ctx, "ghost")
	assert.True(t, core.IsNotFound(err))

	_, err = h.GetUserProfile(ctx, "broken")
	assert.True(t, core.IsUnavailable(err))

	b, err := h.GetUserBehavior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", b.UserID)
	assert.Empty(t, b.Interactions)

	hist, err := h.GetUserHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, hist)

	cs, err := h.GetCandidateContent(ctx, core.ContentQuery{Categories: []string{"preflop", "math"}})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, 3, cs[0].Difficulty)
}

func TestHTTP_Neighbors(t *testing.T) {
	h := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u1/neighbors":
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[
				{"user_id":"u1","level":10},
				{"user_id":"u2","level":12,"skills":{"preflop":60},"performance":{"c1":80}}
			]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	ns, err := h.GetNeighbors(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, ns, 1, "self should be dropped")
	assert.Equal(t, "u2", ns[0].UserID)
	assert.Equal(t, 80.0, ns[0].Performance["c1"])

	ns, err = h.GetNeighbors(ctx, "ghost", 20)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestHTTP_NetworkError(t *testing.T) {
	h := NewHTTP("http://127.0.0.1:1", "http://127.0.0.1:1", 200*time.Millisecond)
	_, err := h.GetUserProfile(context.Background(), "u1")
	assert.True(t, core.IsUnavailable(err))
}

func TestBreaker_OpensOnTransientFailures(t *testing.T) {
	var calls atomic.Int32
	h := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/users/ghost/profile" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	b := NewBreaker(h, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	// NOT_FOUND 不计入失败
	for i := 0; i < 3; i++ {
		_, err := b.GetUserProfile(ctx, "ghost")
		assert.True(t, core.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, core.StatusHealthy, b.Health(ctx))

	for i := 0; i < 2; i++ {
		_, err := b.GetUserProfile(ctx, "u1")
		assert.True(t, core.IsUnavailable(err))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, core.StatusUnhealthy, b.Health(ctx))

	before := calls.Load()
	_, err := b.GetUserProfile(ctx, "u1")
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, before, calls.Load(), "open circuit must not reach the backend")
}
