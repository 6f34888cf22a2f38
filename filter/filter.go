// Package filter 在策略打分之前剔除不可推荐的候选内容。
package filter

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// Filter 判断一条候选内容是否应该被剔除。
// 返回 true 表示剔除，false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 content 是否应该被剔除
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, content *core.TrainingContent) (bool, error)
}
