package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
)

// Chain 组合多个过滤器，任意一个返回 true 即剔除。
// 单个过滤器出错时记录日志并视为保留，不中断请求。
type Chain struct {
	Filters []Filter
	Logger  zerolog.Logger
}

// NewChain 创建过滤链。
func NewChain(logger zerolog.Logger, filters ...Filter) *Chain {
	return &Chain{Filters: filters, Logger: logger.With().Str("component", "filter").Logger()}
}

// Apply 返回保留下来的候选，以及每个过滤器剔除的数量。
func (c *Chain) Apply(
	ctx context.Context,
	rctx *core.RecommendContext,
	candidates []*core.TrainingContent,
) ([]*core.TrainingContent, map[string]int) {
	if c == nil || len(c.Filters) == 0 || len(candidates) == 0 {
		return candidates, nil
	}

	dropped := make(map[string]int)
	out := make([]*core.TrainingContent, 0, len(candidates))
	for _, content := range candidates {
		if content == nil {
			continue
		}
		drop := false
		for _, f := range c.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, content)
			if err != nil {
				c.Logger.Warn().Err(err).
					Str("filter", f.Name()).
					Str("content_id", content.ID).
					Msg("filter failed, content kept")
				continue
			}
			if ok {
				drop = true
				dropped[f.Name()]++
				break
			}
		}
		if !drop {
			out = append(out, content)
		}
	}
	return out, dropped
}
