package rerank

import (
	"context"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// Novelty 给没看过的内容加分，看过的内容减分，结果收敛到 [0, 1]。
// 历史来自 RecommendContext.History。
type Novelty struct {
	Boost   float64 // 默认 0.10
	Penalty float64 // 默认 0.05
}

func (n *Novelty) Name() string        { return "rerank.novelty" }
func (n *Novelty) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Novelty) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	boost, penalty := n.Boost, n.Penalty
	if boost <= 0 {
		boost = 0.10
	}
	if penalty <= 0 {
		penalty = 0.05
	}

	out := cloneAll(items)
	for _, it := range out {
		delta := boost
		if rctx != nil && rctx.Seen(it.ID) {
			delta = -penalty
		} else {
			it.AddReason("new content for you")
		}
		it.Score = core.Clamp01(it.Score + delta)
		it.SetScore(ScoreNovelty, delta)
	}
	return out, nil
}
