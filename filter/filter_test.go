package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/feedback"
	"github.com/pokeriq/trainrec/store"
)

func content(id string, diff, minutes, minLevel, maxLevel int) *core.TrainingContent {
	return &core.TrainingContent{
		ID:               id,
		Category:         "preflop",
		Difficulty:       diff,
		EstimatedMinutes: minutes,
		Meta:             core.ContentMeta{MinLevel: minLevel, MaxLevel: maxLevel},
	}
}

func rctx(level, minutes int, exclude ...string) *core.RecommendContext {
	p := core.NewUserSkillProfile("u1")
	p.Level = level
	req := &core.Request{UserID: "u1", Limit: 10, Context: core.RequestContext{AvailableMinutes: minutes, Exclude: exclude}}
	return core.NewRecommendContext(req, p, nil, nil)
}

func ids(cs []*core.TrainingContent) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

type failingFilter struct{}

func (failingFilter) Name() string { return "filter.failing" }
func (failingFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.TrainingContent) (bool, error) {
	return false, errors.New("boom")
}

func TestChain_Apply(t *testing.T) {
	chain := NewChain(zerolog.Nop(),
		failingFilter{},
		&ExcludeFilter{},
		&LevelRangeFilter{},
		&TimeBudgetFilter{},
	)
	in := []*core.TrainingContent{
		content("keep", 3, 20, 0, 0),
		content("excluded", 3, 20, 0, 0),
		content("too_hard", 3, 20, 40, 0),
		content("too_easy", 3, 20, 0, 10),
		content("too_long", 3, 90, 0, 0),
	}
	out, dropped := chain.Apply(context.Background(), rctx(25, 30, "excluded"), in)
	assert.Equal(t, []string{"keep"}, ids(out))
	assert.Equal(t, 1, dropped["filter.exclude"])
	assert.Equal(t, 2, dropped["filter.level_range"])
	assert.Equal(t, 1, dropped["filter.time_budget"])
}

func TestTimeBudget_NoBudget(t *testing.T) {
	drop, err := (&TimeBudgetFilter{}).ShouldFilter(context.Background(), rctx(10, 0), content("c", 1, 500, 0, 0))
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter("content.difficulty <= user.level / 10 + 3")
	require.NoError(t, err)

	drop, err := f.ShouldFilter(context.Background(), rctx(20, 0), content("easy", 4, 10, 0, 0))
	require.NoError(t, err)
	assert.False(t, drop)

	drop, err = f.ShouldFilter(context.Background(), rctx(20, 0), content("hard", 9, 10, 0, 0))
	require.NoError(t, err)
	assert.True(t, drop)

	_, err = NewExprFilter("content.difficulty <=")
	assert.Error(t, err)
}

func TestStoreBackedFilters(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore(store.WithCleanupInterval(0))
	defer kv.Close()
	require.NoError(t, kv.HSet(ctx, "blacklist:content", "retired", []byte("1")))
	require.NoError(t, kv.HSet(ctx, feedback.Key("u1"), "boring", []byte(feedback.EventNotHelpful)))
	require.NoError(t, kv.HSet(ctx, feedback.Key("u1"), "liked", []byte("helpful")))

	adapter := NewStoreAdapter(kv)
	chain := NewChain(zerolog.Nop(),
		NewBlacklistFilter([]string{"static"}, adapter, ""),
		NewUserBlockFilter(adapter),
	)
	in := []*core.TrainingContent{
		content("static", 1, 1, 0, 0),
		content("retired", 1, 1, 0, 0),
		content("boring", 1, 1, 0, 0),
		content("liked", 1, 1, 0, 0),
	}
	out, _ := chain.Apply(ctx, rctx(10, 0), in)
	assert.Equal(t, []string{"liked"}, ids(out))
}

func TestCompletedFilter(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	r := rctx(10, 0)
	r.Behavior = &core.UserBehaviorData{UserID: "u1", Interactions: []core.Interaction{
		{ContentID: "recent", CompletionRate: 100, Timestamp: now.Add(-time.Hour)},
		{ContentID: "old", CompletionRate: 100, Timestamp: now.Add(-72 * time.Hour)},
		{ContentID: "partial", CompletionRate: 40, Timestamp: now.Add(-time.Hour)},
	}}
	f := &CompletedFilter{Window: 24 * time.Hour, Now: func() time.Time { return now }}
	out, _ := NewChain(zerolog.Nop(), f).Apply(context.Background(), r, []*core.TrainingContent{
		content("recent", 1, 1, 0, 0), content("old", 1, 1, 0, 0), content("partial", 1, 1, 0, 0),
	})
	assert.Equal(t, []string{"old", "partial"}, ids(out))
}
