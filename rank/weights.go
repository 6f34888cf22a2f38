package rank

import "github.com/pokeriq/trainrec/core"

// Perturbation 按实验分组调整权重，返回值会被再次归一化。
type Perturbation func(w core.Weights, group string) core.Weights

// WeightPolicy 决定各策略的融合权重。
//
// 顺序：按等级选择基础权重 → 实验扰动 → 归一化。
type WeightPolicy struct {
	Base    core.Weights
	NewUser core.Weights // 等级 < NewUserLevel 时使用，偏向内容与路径
	Expert  core.Weights // 等级 > ExpertLevel 时使用，偏向协同与序列

	NewUserLevel int
	ExpertLevel  int

	Perturb Perturbation
}

// DefaultWeightPolicy 返回默认权重策略。
func DefaultWeightPolicy() *WeightPolicy {
	return &WeightPolicy{
		Base: core.Weights{
			core.AlgorithmCollaborative: 0.25,
			core.AlgorithmContentBased:  0.30,
			core.AlgorithmDeepLearning:  0.35,
			core.AlgorithmLearningPath:  0.10,
		},
		NewUser: core.Weights{
			core.AlgorithmCollaborative: 0.10,
			core.AlgorithmContentBased:  0.40,
			core.AlgorithmDeepLearning:  0.20,
			core.AlgorithmLearningPath:  0.30,
		},
		Expert: core.Weights{
			core.AlgorithmCollaborative: 0.35,
			core.AlgorithmContentBased:  0.20,
			core.AlgorithmDeepLearning:  0.40,
			core.AlgorithmLearningPath:  0.05,
		},
		NewUserLevel: 20,
		ExpertLevel:  80,
	}
}

// Resolve 计算给定等级与实验分组下的权重，和为 1。
func (p *WeightPolicy) Resolve(level int, group string) core.Weights {
	w := p.Base
	switch {
	case level < p.NewUserLevel && len(p.NewUser) > 0:
		w = p.NewUser
	case level > p.ExpertLevel && len(p.Expert) > 0:
		w = p.Expert
	}
	w = w.Clone()
	if p.Perturb != nil && group != "" {
		w = p.Perturb(w, group)
	}
	return w.Normalize()
}
