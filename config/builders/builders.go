// Package builders 注册内置的后处理 Node 构建器。
package builders

import (
	"fmt"

	"github.com/pokeriq/trainrec/config"
	"github.com/pokeriq/trainrec/pipeline"
	"github.com/pokeriq/trainrec/pkg/conv"
	"github.com/pokeriq/trainrec/rerank"
)

func init() {
	config.Register("rerank.dedup", BuildDedupNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.difficulty", BuildDifficultyNode)
	config.Register("rerank.novelty", BuildNoveltyNode)
	config.Register("rerank.final_rank", BuildFinalRankNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildDedupNode(map[string]any) (pipeline.Node, error) {
	return &rerank.Dedup{}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	div := conv.ConfigGetInt(cfg, "cap_divisor", 4)
	if div <= 0 {
		return nil, fmt.Errorf("cap_divisor must be positive, got %d", div)
	}
	return &rerank.Diversity{CapDivisor: div}, nil
}

func BuildDifficultyNode(cfg map[string]any) (pipeline.Node, error) {
	step := conv.ConfigGetFloat64(cfg, "step", 0.05)
	maxPenalty := conv.ConfigGetFloat64(cfg, "max_penalty", 0.3)
	if step < 0 || maxPenalty < 0 || maxPenalty > 1 {
		return nil, fmt.Errorf("invalid difficulty config: step=%v max_penalty=%v", step, maxPenalty)
	}
	return &rerank.DifficultyBalance{Step: step, MaxPenalty: maxPenalty}, nil
}

func BuildNoveltyNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Novelty{
		Boost:   conv.ConfigGetFloat64(cfg, "boost", 0.10),
		Penalty: conv.ConfigGetFloat64(cfg, "penalty", 0.05),
	}, nil
}

func BuildFinalRankNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.FinalRank{
		ScoreEpsilon:      conv.ConfigGetFloat64(cfg, "score_epsilon", 0.05),
		ConfidenceEpsilon: conv.ConfigGetFloat64(cfg, "confidence_epsilon", 0.1),
	}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}
