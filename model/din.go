package model

import (
	"fmt"
	"math"
)

// AttentionScorer 是 Deep Interest Network 风格的序列打分模型。
//
// 核心思想：
//   - 注意力：候选内容与每次历史交互计算相关性，越近的交互额外加权
//   - 兴趣提取：按注意力权重聚合历史交互，得到当前兴趣表示
//   - 预测：用户嵌入 + 兴趣表示 + 候选嵌入 + 稠密特征，经 MLP 输出概率
type AttentionScorer struct {
	Dim      int
	ExtraDim int

	// RecencyBias 是最近一次交互在注意力打分上的额外加成，线性衰减到最早一次
	RecencyBias float64

	attention *FeedForward
	mlp       *FeedForward
}

// NewAttentionScorer 创建打分模型；同一 seed 得到同一组权重。
func NewAttentionScorer(dim, extraDim int, layers []int, seed uint64) *AttentionScorer {
	if dim <= 0 {
		dim = 16
	}
	return &AttentionScorer{
		Dim:         dim,
		ExtraDim:    extraDim,
		RecencyBias: 0.5,
		attention:   NewFeedForward(dim*3, []int{8, 1}, seed+1),
		mlp:         NewFeedForward(dim*3+extraDim, layers, seed+2),
	}
}

func (m *AttentionScorer) Name() string {
	return "din"
}

// Score 计算候选内容的分数。序列为空时兴趣表示为零向量。
func (m *AttentionScorer) Score(in SequenceInput) (ScoreResult, error) {
	if len(in.Candidate) != m.Dim {
		return ScoreResult{}, fmt.Errorf("din: candidate dim %d, want %d", len(in.Candidate), m.Dim)
	}
	if len(in.User) != m.Dim {
		return ScoreResult{}, fmt.Errorf("din: user dim %d, want %d", len(in.User), m.Dim)
	}

	weights, err := m.computeAttention(in.Candidate, in.Sequence)
	if err != nil {
		return ScoreResult{}, err
	}
	interest := m.aggregate(in.Sequence, weights)

	x := make([]float64, 0, m.Dim*3+m.ExtraDim)
	x = append(x, in.User...)
	x = append(x, interest...)
	x = append(x, in.Candidate...)
	extra := make([]float64, m.ExtraDim)
	copy(extra, in.Extra)
	x = append(x, extra...)

	score := m.mlp.Predict(x)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return ScoreResult{}, fmt.Errorf("din: invalid score %v", score)
	}
	return ScoreResult{Score: score, Attention: weights}, nil
}

func (m *AttentionScorer) computeAttention(candidate []float64, seq [][]float64) ([]float64, error) {
	if len(seq) == 0 {
		return nil, nil
	}
	scores := make([]float64, len(seq))
	feat := make([]float64, m.Dim*3)
	for i, hist := range seq {
		if len(hist) != m.Dim {
			return nil, fmt.Errorf("din: sequence[%d] dim %d, want %d", i, len(hist), m.Dim)
		}
		copy(feat, candidate)
		copy(feat[m.Dim:], hist)
		for j := 0; j < m.Dim; j++ {
			feat[2*m.Dim+j] = candidate[j] * hist[j]
		}
		recency := float64(i+1) / float64(len(seq))
		scores[i] = m.attention.Forward(feat) + dot(candidate, hist)/math.Sqrt(float64(m.Dim)) + m.RecencyBias*recency
	}
	return softmax(scores), nil
}

func (m *AttentionScorer) aggregate(seq [][]float64, weights []float64) []float64 {
	out := make([]float64, m.Dim)
	for i, hist := range seq {
		for j := 0; j < m.Dim; j++ {
			out[j] += weights[i] * hist[j]
		}
	}
	return out
}
