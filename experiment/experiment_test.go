package experiment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

const expYAML = `
experiment:
  name: fusion_weights_v2
  enabled: true
  variants:
    - name: deep_boost
      traffic: 0.3
      weight_multipliers:
        deep_learning: 2.0
    - name: path_boost
      traffic: 0.3
      weight_multipliers:
        LEARNING_PATH: 3
`

func baseWeights() core.Weights {
	return core.Weights{
		core.AlgorithmCollaborative: 0.25,
		core.AlgorithmContentBased:  0.30,
		core.AlgorithmDeepLearning:  0.35,
		core.AlgorithmLearningPath:  0.10,
	}
}

func TestAssigner_DeterministicAndSplit(t *testing.T) {
	exp, err := ParseYAML([]byte(expYAML))
	require.NoError(t, err)
	a, err := NewAssigner(exp)
	require.NoError(t, err)

	ctx := context.Background()
	counts := map[string]int{}
	for i := 0; i < 5000; i++ {
		uid := fmt.Sprintf("user-%d", i)
		v1, ok1 := a.AssignUserToExperiment(ctx, uid)
		v2, ok2 := a.AssignUserToExperiment(ctx, uid)
		require.Equal(t, v1, v2)
		require.Equal(t, ok1, ok2)
		if !ok1 {
			v1 = "control"
		}
		counts[v1]++
	}
	// 30% / 30% / 40%，容忍 3 个百分点
	assert.InDelta(t, 1500, counts["deep_boost"], 150)
	assert.InDelta(t, 1500, counts["path_boost"], 150)
	assert.InDelta(t, 2000, counts["control"], 150)
}

func TestAssigner_Disabled(t *testing.T) {
	exp, _ := ParseYAML([]byte(expYAML))
	exp.Enabled = false
	a, err := NewAssigner(exp)
	require.NoError(t, err)
	_, ok := a.AssignUserToExperiment(context.Background(), "user-1")
	assert.False(t, ok)
}

func TestAssigner_AdjustWeights(t *testing.T) {
	exp, _ := ParseYAML([]byte(expYAML))
	a, err := NewAssigner(exp)
	require.NoError(t, err)

	base := baseWeights()
	w := a.AdjustWeights(base, "deep_boost")
	assert.InDelta(t, 0.70/1.35, w[core.AlgorithmDeepLearning], 1e-9)
	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.InDelta(t, 0.35, base[core.AlgorithmDeepLearning], 1e-9, "base must not change")

	w = a.AdjustWeights(base, "unknown")
	assert.InDelta(t, 0.35, w[core.AlgorithmDeepLearning], 1e-9)
}

func TestExperiment_Validate(t *testing.T) {
	cases := []struct {
		name string
		exp  Experiment
	}{
		{"no name", Experiment{}},
		{"over traffic", Experiment{Name: "e", Variants: []Variant{{Name: "a", Traffic: 0.7}, {Name: "b", Traffic: 0.4}}}},
		{"dup", Experiment{Name: "e", Variants: []Variant{{Name: "a", Traffic: 0.1}, {Name: "a", Traffic: 0.1}}}},
		{"bad alg", Experiment{Name: "e", Variants: []Variant{{Name: "a", Traffic: 0.1, WeightMultipliers: map[string]float64{"magic": 2}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAssigner(tc.exp)
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestNoop(t *testing.T) {
	_, ok := Noop{}.AssignUserToExperiment(context.Background(), "u")
	assert.False(t, ok)
	w := Noop{}.AdjustWeights(baseWeights(), "x")
	assert.InDelta(t, 0.35, w[core.AlgorithmDeepLearning], 1e-9)
}
