package rerank

import (
	"context"
	"fmt"
	"math"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// DifficultyBalance 按内容难度与用户目标难度的差距扣分。
//
// 目标难度 floor(level/10)+1，收敛到 [1, 10]；
// 扣分 min(MaxPenalty, Step·|difficulty-target|)。
type DifficultyBalance struct {
	Step       float64 // 默认 0.05
	MaxPenalty float64 // 默认 0.3
}

func (n *DifficultyBalance) Name() string        { return "rerank.difficulty" }
func (n *DifficultyBalance) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *DifficultyBalance) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	step, maxPenalty := n.Step, n.MaxPenalty
	if step <= 0 {
		step = 0.05
	}
	if maxPenalty <= 0 {
		maxPenalty = 0.3
	}

	level := 1
	if rctx != nil {
		level = rctx.Level()
	}
	target := core.TargetDifficulty(level)

	out := cloneAll(items)
	for _, it := range out {
		if it.Difficulty <= 0 {
			// 难度未知，不扣分
			it.SetScore(ScoreDifficultyPenalty, 0)
			continue
		}
		gap := math.Abs(float64(it.Difficulty - target))
		penalty := math.Min(maxPenalty, step*gap)
		it.Score = core.Clamp01(it.Score - penalty)
		it.SetScore(ScoreDifficultyPenalty, penalty)
		if it.AdaptiveLevel == 0 {
			it.AdaptiveLevel = target
		}
		if penalty >= maxPenalty {
			it.AddReason(fmt.Sprintf("difficulty %d is far from your level", it.Difficulty))
		}
	}
	return out, nil
}
