package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

func item(id string, score, conf float64, reasons ...string) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.Confidence = conf
	it.Reasons = reasons
	return it
}

func TestFusion_WeightedAverageOverContributors(t *testing.T) {
	f := &Fusion{}
	out := f.Fuse([]StrategyOutput{
		{Algorithm: core.AlgorithmCollaborative, Weight: 0.4, Items: []*core.Item{item("a", 0.8, 0.6, "similar players")}},
		{Algorithm: core.AlgorithmContentBased, Weight: 0.6, Items: []*core.Item{item("a", 0.4, 0.9, "skill gap"), item("b", 0.7, 0.5)}},
	})
	require.Len(t, out, 2)

	a := out[0]
	assert.Equal(t, "a", a.ID)
	// (0.8*0.4 + 0.4*0.6) / 1.0
	assert.InDelta(t, 0.56, a.Score, 1e-9)
	assert.InDelta(t, 0.78, a.Confidence, 1e-9)
	assert.Equal(t, "combined from 2 strategies", a.Reasons[0])
	assert.Contains(t, a.Reasons, "similar players")
	assert.InDelta(t, 0.8, a.GetScore("strategy.collaborative"), 1e-9)

	// 只出现在一个策略中的内容保持原分数
	b := out[1]
	assert.InDelta(t, 0.7, b.Score, 1e-9)
	assert.NotContains(t, b.Reasons, "combined from 2 strategies")
}

func TestFusion_TwoStrategyLaw(t *testing.T) {
	out := (&Fusion{}).Fuse([]StrategyOutput{
		{Algorithm: core.AlgorithmContentBased, Weight: 0.6, Items: []*core.Item{item("a", 0.8, 0.5)}},
		{Algorithm: core.AlgorithmDeepLearning, Weight: 0.4, Items: []*core.Item{item("a", 0.4, 0.5)}},
	})
	require.Len(t, out, 1)
	assert.InDelta(t, 0.64, out[0].Score, 1e-9)
}

func TestFusion_SkipsZeroWeightAndLeavesInputs(t *testing.T) {
	in := item("a", 0.9, 0.9)
	out := (&Fusion{}).Fuse([]StrategyOutput{
		{Algorithm: core.AlgorithmCollaborative, Weight: 0, Items: []*core.Item{item("z", 1, 1)}},
		{Algorithm: core.AlgorithmDeepLearning, Weight: 0.35, Items: []*core.Item{in}},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
	out[0].Score = 0.1
	assert.Equal(t, 0.9, in.Score)
}

func TestFusion_Empty(t *testing.T) {
	assert.Empty(t, (&Fusion{}).Fuse(nil))
}

func TestWeightPolicy_LevelTables(t *testing.T) {
	p := DefaultWeightPolicy()

	w := p.Resolve(10, "")
	assert.InDelta(t, 0.40, w[core.AlgorithmContentBased], 1e-9)
	assert.InDelta(t, 0.30, w[core.AlgorithmLearningPath], 1e-9)

	w = p.Resolve(50, "")
	assert.InDelta(t, 0.35, w[core.AlgorithmDeepLearning], 1e-9)

	w = p.Resolve(90, "")
	assert.InDelta(t, 0.40, w[core.AlgorithmDeepLearning], 1e-9)
	assert.InDelta(t, 0.05, w[core.AlgorithmLearningPath], 1e-9)

	// 边界：20 和 80 使用基础权重
	assert.InDelta(t, 0.25, p.Resolve(20, "")[core.AlgorithmCollaborative], 1e-9)
	assert.InDelta(t, 0.25, p.Resolve(80, "")[core.AlgorithmCollaborative], 1e-9)
}

func TestWeightPolicy_PerturbIsNormalized(t *testing.T) {
	p := DefaultWeightPolicy()
	p.Perturb = func(w core.Weights, group string) core.Weights {
		if group == "deep_boost" {
			w[core.AlgorithmDeepLearning] *= 2
		}
		return w
	}
	w := p.Resolve(50, "deep_boost")
	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.70/1.35, w[core.AlgorithmDeepLearning], 1e-9)

	// 基础表不被修改
	assert.InDelta(t, 0.35, p.Base[core.AlgorithmDeepLearning], 1e-9)
}
