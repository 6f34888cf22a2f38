package rerank

import (
	"context"
	"math"
	"sort"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// FinalRank 做最终排序并写入 1 起始的 FinalRank：
//   - 分数差大于 ScoreEpsilon 时按分数降序
//   - 否则置信度差大于 ConfidenceEpsilon 时按置信度降序
//   - 否则按 diversity 子分数降序
//   - 最后按分数、ID 保证结果稳定
type FinalRank struct {
	ScoreEpsilon      float64 // 默认 0.05
	ConfidenceEpsilon float64 // 默认 0.1
}

func (n *FinalRank) Name() string        { return "rerank.final_rank" }
func (n *FinalRank) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *FinalRank) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	se, ce := n.ScoreEpsilon, n.ConfidenceEpsilon
	if se <= 0 {
		se = 0.05
	}
	if ce <= 0 {
		ce = 0.1
	}

	out := cloneAll(items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if math.Abs(a.Score-b.Score) > se {
			return a.Score > b.Score
		}
		if math.Abs(a.Confidence-b.Confidence) > ce {
			return a.Confidence > b.Confidence
		}
		if da, db := a.GetScore(ScoreDiversity), b.GetScore(ScoreDiversity); da != db {
			return da > db
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
	for i, it := range out {
		it.FinalRank = i + 1
	}
	return out, nil
}
