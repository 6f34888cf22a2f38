// Package rank 负责把多个策略的打分融合成一个列表。
package rank

import (
	"fmt"
	"sort"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pkg/utils"
)

// StrategyOutput 是一个策略的输出及其融合权重。
type StrategyOutput struct {
	Algorithm core.Algorithm
	Items     []*core.Item
	Weight    float64
}

// Fusion 按权重融合多个策略的结果。
//
// 同一内容出现在多个策略中时：
//   - score = Σ(score_i·w_i) / Σ(w_i)，只统计给出该内容的策略
//   - confidence 同理
//   - 理由与其他元信息取单策略分数最高的那一份，并在最前面加一条融合说明
//
// 只出现在一个策略中的内容保持原分数，不会因缺席其他策略被拉低。
// 权重 <= 0 的策略不参与融合。
type Fusion struct{}

type fusionAcc struct {
	best        *core.Item
	scoreSum    float64
	confSum     float64
	weightSum   float64
	sources     int
	perAlgScore map[core.Algorithm]float64
}

// Fuse 融合并返回按 ID 排序的新列表，输入不会被修改。
func (f *Fusion) Fuse(outputs []StrategyOutput) []*core.Item {
	acc := make(map[string]*fusionAcc)
	for _, out := range outputs {
		if out.Weight <= 0 {
			continue
		}
		for _, it := range out.Items {
			if it == nil {
				continue
			}
			a, ok := acc[it.ID]
			if !ok {
				a = &fusionAcc{perAlgScore: make(map[core.Algorithm]float64)}
				acc[it.ID] = a
			}
			if _, dup := a.perAlgScore[out.Algorithm]; dup {
				continue
			}
			a.perAlgScore[out.Algorithm] = it.Score
			a.scoreSum += it.Score * out.Weight
			a.confSum += it.Confidence * out.Weight
			a.weightSum += out.Weight
			a.sources++
			if a.best == nil || it.Score > a.best.Score {
				a.best = it
			}
		}
	}

	fused := make([]*core.Item, 0, len(acc))
	for _, a := range acc {
		it := a.best.Clone()
		it.Score = core.Clamp01(a.scoreSum / a.weightSum)
		it.Confidence = core.Clamp01(a.confSum / a.weightSum)
		for alg, s := range a.perAlgScore {
			it.SetScore("strategy."+alg.Key(), s)
		}
		if a.sources > 1 {
			it.Reasons = append([]string{fmt.Sprintf("combined from %d strategies", a.sources)}, it.Reasons...)
			it.PutLabel("fusion", utils.NewLabel(fmt.Sprintf("%d", a.sources), "fusion"))
		}
		fused = append(fused, it)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].ID < fused[j].ID })
	return fused
}
