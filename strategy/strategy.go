// Package strategy 提供四种打分策略以及并发调度。
//
// 每个策略只对传入的候选内容打分，不负责召回；返回的 Item 分数与置信度
// 都在 [0, 1]，并且不包含被请求排除的内容。
package strategy

import (
	"context"
	"sort"

	"github.com/pokeriq/trainrec/core"
)

// Strategy 表示一个可并发调度的打分策略单元。
//
// 实现必须能被多个请求并发调用；rctx 只读。
type Strategy interface {
	Name() string
	Algorithm() core.Algorithm
	Recommend(ctx context.Context, rctx *core.RecommendContext, candidates []*core.TrainingContent) ([]*core.Item, error)
}

// ModelUpdater 由需要离线刷新用户模型的策略实现。
type ModelUpdater interface {
	UpdateUserModel(ctx context.Context, profile *core.UserSkillProfile, behavior *core.UserBehaviorData) error
}

// ProgressReporter 由能报告学习路径进度的策略实现。
type ProgressReporter interface {
	Progress(ctx context.Context, rctx *core.RecommendContext) (*core.PathProgress, error)
}

// eligible 过滤掉 nil、空 ID、重复以及被排除的候选，并按 ID 排序，保证输出确定。
func eligible(rctx *core.RecommendContext, candidates []*core.TrainingContent) []*core.TrainingContent {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]*core.TrainingContent, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.ID == "" {
			continue
		}
		if rctx != nil && rctx.IsExcluded(c.ID) {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortByScore 按分数降序排序，同分按 ID 升序。
func sortByScore(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}

func missingProfile(name string) error {
	return core.NewDomainError(core.ModuleStrategy, core.ErrorCodeInvalidInput, name+": missing user profile")
}
