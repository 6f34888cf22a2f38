package filter

import (
	"context"
	"time"

	"github.com/pokeriq/trainrec/core"
)

// CompletedFilter 剔除用户在时间窗口内已经完成的内容，避免短期内重复训练。
type CompletedFilter struct {
	// Window 时间窗口，<=0 时不生效
	Window time.Duration
	// MinCompletion 视为完成的完成度，默认 80
	MinCompletion float64

	Now func() time.Time
}

func (f *CompletedFilter) Name() string { return "filter.completed" }

func (f *CompletedFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	if f.Window <= 0 || rctx == nil || rctx.Behavior == nil {
		return false, nil
	}
	threshold := f.MinCompletion
	if threshold <= 0 {
		threshold = 80
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	since := now().Add(-f.Window)
	for _, in := range rctx.Behavior.Interactions {
		if in.ContentID == c.ID && in.CompletionRate >= threshold && in.Timestamp.After(since) {
			return true, nil
		}
	}
	return false, nil
}
