package filter

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// ExcludeFilter 剔除请求里显式排除的内容。
type ExcludeFilter struct{}

func (f *ExcludeFilter) Name() string { return "filter.exclude" }

func (f *ExcludeFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	return rctx != nil && rctx.IsExcluded(c.ID), nil
}

// LevelRangeFilter 剔除用户等级不在 Meta.MinLevel/MaxLevel 范围内的内容。
// 0 表示该侧不限。
type LevelRangeFilter struct{}

func (f *LevelRangeFilter) Name() string { return "filter.level_range" }

func (f *LevelRangeFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	if rctx == nil {
		return false, nil
	}
	level := rctx.Level()
	if c.Meta.MinLevel > 0 && level < c.Meta.MinLevel {
		return true, nil
	}
	if c.Meta.MaxLevel > 0 && level > c.Meta.MaxLevel {
		return true, nil
	}
	return false, nil
}

// TimeBudgetFilter 剔除预计时长超过本次可用时间的内容。
// 请求未声明可用时间时不生效。
type TimeBudgetFilter struct {
	// Slack 允许超出的分钟数
	Slack int
}

func (f *TimeBudgetFilter) Name() string { return "filter.time_budget" }

func (f *TimeBudgetFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	if rctx == nil || rctx.Request == nil {
		return false, nil
	}
	budget := rctx.Request.Context.AvailableMinutes
	if budget <= 0 || c.EstimatedMinutes <= 0 {
		return false, nil
	}
	return c.EstimatedMinutes > budget+f.Slack, nil
}
