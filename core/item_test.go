package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/pkg/utils"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"inside", 0.4, 0.4},
		{"negative", -0.2, 0},
		{"above one", 1.7, 1},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp01(tt.in))
		})
	}
}

func TestItem_CloneIsDeep(t *testing.T) {
	it := NewItem("c1")
	it.Reasons = []string{"a"}
	it.SetScore("novelty", 0.1)
	it.PutLabel("strategy", utils.NewLabel("content", "strategy"))

	cp := it.Clone()
	cp.Reasons[0] = "b"
	cp.SetScore("novelty", -0.05)
	cp.PutLabel("strategy", utils.NewLabel("path", "strategy"))

	assert.Equal(t, "a", it.Reasons[0])
	assert.Equal(t, 0.1, it.GetScore("novelty"))
	assert.Equal(t, "content", it.Labels["strategy"].Value)
	assert.Equal(t, "content|path", cp.Labels["strategy"].Value)
}

func TestItem_AddReasonSkipsDuplicates(t *testing.T) {
	it := NewItem("c1")
	it.AddReason("x")
	it.AddReason("")
	it.AddReason("x")
	it.AddReason("y")
	assert.Equal(t, []string{"x", "y"}, it.Reasons)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("content-based")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmContentBased, a)

	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmHybrid, a)

	_, err = ParseAlgorithm("fallback")
	assert.True(t, IsInvalidInput(err))
}

func TestDomainError_Wrapping(t *testing.T) {
	cause := assert.AnError
	err := WrapDomainError(ModuleProfile, ErrorCodeUnavailable, "profile service down", cause)
	wrapped := &wrapper{err}

	assert.True(t, IsUnavailable(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, IsStoreNotFound(WrapDomainError(ModuleStore, ErrorCodeNotFound, "missing", nil)))
	assert.False(t, IsStoreNotFound(NewDomainError(ModuleProfile, ErrorCodeNotFound, "missing")))
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "outer: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestWeights_Normalize(t *testing.T) {
	w := Weights{AlgorithmCollaborative: 2, AlgorithmContentBased: 2, AlgorithmDeepLearning: -1}.Normalize()
	assert.InDelta(t, 0.5, w[AlgorithmCollaborative], 1e-9)
	assert.InDelta(t, 0.5, w[AlgorithmContentBased], 1e-9)
	assert.Equal(t, 0.0, w[AlgorithmDeepLearning])

	even := Weights{AlgorithmCollaborative: 0, AlgorithmLearningPath: 0}.Normalize()
	assert.InDelta(t, 0.5, even[AlgorithmLearningPath], 1e-9)
}

func TestUserBehaviorData_RecentSequence(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &UserBehaviorData{Interactions: []Interaction{
		{ContentID: "c3", Timestamp: base.Add(3 * time.Hour)},
		{ContentID: "c1", Timestamp: base.Add(1 * time.Hour)},
		{ContentID: "c2", Timestamp: base.Add(2 * time.Hour)},
	}}

	seq := b.RecentSequence(2)
	require.Len(t, seq, 2)
	assert.Equal(t, "c2", seq[0].ContentID)
	assert.Equal(t, "c3", seq[1].ContentID)
	assert.Equal(t, "c3", b.Interactions[0].ContentID, "original order untouched")

	assert.Nil(t, (*UserBehaviorData)(nil).RecentSequence(5))
}

func TestRecommendContext(t *testing.T) {
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := &Request{UserID: "u1", Limit: 5, Context: RequestContext{Exclude: []string{"c9"}}}
	rctx := NewRecommendContext(req, nil, nil, []HistoryEntry{
		{ContentID: "c1", Timestamp: old},
		{ContentID: "c1", Timestamp: old.Add(time.Hour)},
	})

	assert.Equal(t, "u1", rctx.UserID)
	assert.True(t, rctx.IsExcluded("c9"))
	assert.False(t, rctx.IsExcluded("c1"))
	assert.True(t, rctx.Seen("c1"))
	assert.Equal(t, old.Add(time.Hour), rctx.History["c1"])
	assert.Equal(t, 1, rctx.Level())
	assert.Equal(t, 5, rctx.Limit())
}

func TestTargetDifficulty(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{-5, 1},
		{0, 1},
		{15, 2},
		{25, 3},
		{95, 10},
		{100, 10},
		{250, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetDifficulty(tt.level), "level %d", tt.level)
	}
}
