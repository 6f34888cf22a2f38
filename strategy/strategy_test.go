package strategy

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/model"
)

func assertBounded(t *testing.T, items []*core.Item) {
	t.Helper()
	seen := map[string]bool{}
	for _, it := range items {
		assert.False(t, seen[it.ID], "duplicate %s", it.ID)
		seen[it.ID] = true
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.LessOrEqual(t, it.Score, 1.0)
		assert.GreaterOrEqual(t, it.Confidence, 0.0)
		assert.LessOrEqual(t, it.Confidence, 1.0)
	}
}

func TestCollaborative_ColdStartReturnsEmpty(t *testing.T) {
	s := &Collaborative{Store: &neighborStub{neighbors: []Neighbor{{UserID: "u2", Skills: map[string]float64{"preflop": 60}}}}}
	items, err := s.Recommend(context.Background(), testContext(testProfile(10), nil), testCatalog())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCollaborative_ScoresFromNeighbors(t *testing.T) {
	store := &neighborStub{neighbors: []Neighbor{
		{UserID: "u1", Level: 20, Skills: map[string]float64{"preflop": 70}, Performance: map[string]float64{"c3": 100}},
		{UserID: "u2", Level: 22, Skills: map[string]float64{"preflop": 68, "postflop": 35, "psychology": 55}, Performance: map[string]float64{"c1": 50, "c4": 90}},
		{UserID: "u3", Level: 18, Skills: map[string]float64{"preflop": 72, "postflop": 28, "psychology": 45}, Performance: map[string]float64{"c4": 70, "c2": 20}},
	}}
	s := &Collaborative{Store: store}
	rctx := testContext(testProfile(20), testBehavior(4), "c2")

	items, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assertBounded(t, items)
	assert.NotContains(t, ids(items), "c2", "excluded")
	assert.NotContains(t, ids(items), "c3", "only the user itself practiced c3")
	require.NotEmpty(t, items)
	assert.Equal(t, "c4", items[0].ID)
	assert.Equal(t, 2.0, items[0].GetScore("neighbor_support"))
	assert.Equal(t, core.AlgorithmCollaborative, items[0].Algorithm)

	again, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, items, again, "deterministic")
}

func TestCollaborative_StoreError(t *testing.T) {
	s := &Collaborative{Store: &neighborStub{err: errors.New("down")}}
	_, err := s.Recommend(context.Background(), testContext(testProfile(20), testBehavior(3)), testCatalog())
	assert.Error(t, err)
}

func TestContent_FactorsAndDeterminism(t *testing.T) {
	s := &Content{}
	rctx := testContext(testProfile(20), testBehavior(4))

	items, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	require.Len(t, items, 4)
	assertBounded(t, items)

	byID := map[string]*core.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	// postflop 是弱项且在关注领域，难度 3 正好是 level 20 的目标难度
	assert.Equal(t, "c2", items[0].ID)
	assert.Greater(t, byID["c2"].GetScore("skill_match"), byID["c1"].GetScore("skill_match"))
	assert.Equal(t, 1.0, byID["c2"].GetScore("difficulty_fit"))
	assert.Equal(t, 3, byID["c2"].AdaptiveLevel)
	assert.NotEmpty(t, byID["c2"].Reasons)

	again, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestContent_MissingProfile(t *testing.T) {
	_, err := (&Content{}).Recommend(context.Background(), testContext(nil, nil), testCatalog())
	assert.True(t, core.IsInvalidInput(err))
}

func TestSequence_ScoresAllCandidates(t *testing.T) {
	s := NewSequence(SequenceConfig{Dim: 8, Seed: 11}, zerolog.Nop())
	rctx := testContext(testProfile(30), testBehavior(12), "c3")

	items, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assertBounded(t, items)
	assert.ElementsMatch(t, []string{"c1", "c2", "c4"}, ids(items))
	for _, it := range items {
		assert.InDelta(t, 0.8, it.Confidence, 1e-9, "full sequence coverage")
	}

	again, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, items, again, "embeddings stable across calls")
}

type failingScorer struct{ panic bool }

func (f failingScorer) Name() string { return "failing" }
func (f failingScorer) Score(model.SequenceInput) (model.ScoreResult, error) {
	if f.panic {
		panic("bad weights")
	}
	return model.ScoreResult{}, errors.New("bad input")
}

func TestSequence_NeutralOnScorerFailure(t *testing.T) {
	for _, panics := range []bool{false, true} {
		s := NewSequence(SequenceConfig{Dim: 4, Seed: 3}, zerolog.Nop())
		s.Scorer = failingScorer{panic: panics}

		items, err := s.Recommend(context.Background(), testContext(testProfile(10), nil), testCatalog())
		require.NoError(t, err)
		require.Len(t, items, 4)
		for _, it := range items {
			assert.Equal(t, 0.5, it.Score)
		}
	}
}

func TestSequence_UpdateUserModel(t *testing.T) {
	s := NewSequence(SequenceConfig{Dim: 8, Seed: 5}, zerolog.Nop())
	before := append([]float64(nil), s.Embeddings.Get(embedUser, "u1")...)

	require.NoError(t, s.UpdateUserModel(context.Background(), testProfile(40), testBehavior(3)))
	after, ok := s.Embeddings.Lookup(embedUser, "u1")
	require.True(t, ok)
	assert.NotEqual(t, before, after)

	var norm float64
	for _, v := range after {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

const pathsYAML = `
paths:
  - id: postflop-core
    name: Postflop Core
    focus_areas: [postflop]
    steps:
      - id: basics
        name: Basics
        content_ids: [c1]
      - id: cbet
        name: C-bets
        content_ids: [c2]
        prerequisites: [basics]
      - id: rivers
        name: Rivers
        content_ids: [c4]
        prerequisites: [cbet]
  - id: mental-game
    name: Mental Game
    focus_areas: [psychology]
    steps:
      - id: tilt
        content_ids: [c3]
`

func TestPath_OrderAndProgress(t *testing.T) {
	paths, err := ParsePathsYAML([]byte(pathsYAML))
	require.NoError(t, err)
	s := &Path{Store: paths}

	// c1 完成率 100，达成第一步
	behavior := &core.UserBehaviorData{Interactions: []core.Interaction{
		{ContentID: "c1", CompletionRate: 95, Timestamp: baseTime},
		{ContentID: "c2", CompletionRate: 40, Timestamp: baseTime.Add(time.Hour)},
	}}
	rctx := testContext(testProfile(20), behavior)

	items, err := s.Recommend(context.Background(), rctx, testCatalog())
	require.NoError(t, err)
	assertBounded(t, items)
	assert.Equal(t, []string{"c2", "c1", "c4"}, ids(items))
	assert.Equal(t, 1.0, items[0].Score, "current step")
	assert.Equal(t, 0.2, items[1].Score, "review")
	assert.Equal(t, 0.1, items[2].Score, "blocked by prerequisite")

	progress, err := s.Progress(context.Background(), rctx)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, "postflop-core", progress.PathID)
	assert.Equal(t, 2, progress.CurrentStep)
	assert.Equal(t, 3, progress.TotalSteps)
	assert.InDelta(t, 33.3, progress.PercentComplete, 1e-9)
	assert.Equal(t, core.StatusHealthy, s.Health(context.Background()))
}

func TestPath_NoPaths(t *testing.T) {
	s := &Path{Store: StaticPaths(nil)}
	items, err := s.Recommend(context.Background(), testContext(testProfile(20), nil), testCatalog())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, core.StatusDegraded, s.Health(context.Background()))
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(&Path{}, &Content{})

	all, err := r.Resolve(core.AlgorithmHybrid)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, core.AlgorithmContentBased, all[0].Algorithm(), "fixed algorithm order")

	one, err := r.Resolve(core.AlgorithmLearningPath)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = r.Resolve(core.AlgorithmCollaborative)
	assert.True(t, core.IsNotSupported(err))
}

func TestFanout_IsolatesFailures(t *testing.T) {
	good := &stubStrategy{name: "good", alg: core.AlgorithmContentBased, items: []*core.Item{
		{ID: "c1", Score: 1.4, Confidence: 0.5},
		{ID: "c1", Score: 0.2},
		{ID: "unknown", Score: 0.9},
		{ID: "c2", Score: 0.4},
	}}
	failing := &stubStrategy{name: "failing", alg: core.AlgorithmCollaborative, err: errors.New("boom")}
	panicking := &stubStrategy{name: "panicking", alg: core.AlgorithmDeepLearning, panic: true}
	slow := &stubStrategy{name: "slow", alg: core.AlgorithmLearningPath, delay: time.Second}
	invalid := &stubStrategy{name: "invalid", alg: core.AlgorithmLearningPath, items: []*core.Item{{ID: "c1", Score: math.NaN()}}}

	var calls atomic.Int32
	f := &Fanout{Timeout: 20 * time.Millisecond, MaxConcurrent: 2, Logger: zerolog.Nop()}
	f.OnResult = func(Result) { calls.Add(1) }

	results := f.Dispatch(context.Background(), testContext(testProfile(10), nil, "c2"),
		[]Strategy{good, failing, panicking, slow, invalid}, testCatalog())
	require.Len(t, results, 5)

	require.NoError(t, results[0].Err)
	assert.Equal(t, []string{"c1"}, ids(results[0].Items))
	assert.Equal(t, 1.0, results[0].Items[0].Score, "clamped")
	assert.Equal(t, core.AlgorithmContentBased, results[0].Items[0].Algorithm)

	assert.Error(t, results[1].Err)
	assert.ErrorContains(t, results[2].Err, "panicked")
	assert.ErrorIs(t, results[3].Err, context.DeadlineExceeded)
	assert.Error(t, results[4].Err)
	for _, r := range results[1:] {
		assert.Empty(t, r.Items)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestTrending(t *testing.T) {
	kv := newKV()
	tr := &Trending{Store: kv}
	ctx := context.Background()

	require.NoError(t, tr.Record(ctx, []*core.Item{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, tr.Record(ctx, []*core.Item{{ID: "b"}}))

	top, err := tr.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []TrendingEntry{{ContentID: "b", Score: 2}}, top)
}

func TestStrategies_CandidateOrderDoesNotChangeOutput(t *testing.T) {
	paths, err := ParsePathsYAML([]byte(pathsYAML))
	require.NoError(t, err)
	neighbors := []Neighbor{
		{UserID: "u2", Level: 22, Skills: map[string]float64{"preflop": 68, "postflop": 35, "psychology": 55}, Performance: map[string]float64{"c1": 50, "c4": 90}},
		{UserID: "u3", Level: 18, Skills: map[string]float64{"preflop": 72, "postflop": 28, "psychology": 45}, Performance: map[string]float64{"c4": 70, "c2": 20}},
	}
	behavior := testBehavior(6)

	cases := []struct {
		name string
		new  func() Strategy
	}{
		{"collaborative", func() Strategy { return &Collaborative{Store: &neighborStub{neighbors: neighbors}} }},
		{"content", func() Strategy { return &Content{} }},
		{"sequence", func() Strategy { return NewSequence(SequenceConfig{Dim: 8, Seed: 7}, zerolog.Nop()) }},
		{"path", func() Strategy { return &Path{Store: paths} }},
	}

	catalog := testCatalog()
	reversed := make([]*core.TrainingContent, len(catalog))
	for i, c := range catalog {
		reversed[len(catalog)-1-i] = c
	}
	shuffled := []*core.TrainingContent{catalog[2], catalog[0], catalog[3], catalog[1]}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := tc.new().Recommend(context.Background(), testContext(testProfile(20), behavior), catalog)
			require.NoError(t, err)
			require.NotEmpty(t, want)

			for _, order := range [][]*core.TrainingContent{reversed, shuffled} {
				got, err := tc.new().Recommend(context.Background(), testContext(testProfile(20), behavior), order)
				require.NoError(t, err)
				assert.Equal(t, ids(want), ids(got))
				assert.Equal(t, want, got)
			}
		})
	}
}
