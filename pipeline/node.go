package pipeline

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// Kind 用于标记 Node 类型，方便观测和按阶段打点。
type Kind string

const (
	KindFilter      Kind = "filter"      // 剔除不符合约束的结果
	KindReRank      Kind = "rerank"      // 在融合结果上做多样性、难度、新颖度调整
	KindPostProcess Kind = "postprocess" // 最终排序、截断
)

// Node 是后处理链路的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态；Node 不得修改入参里的 Item，
// 需要改分数时先 Clone。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把函数包装成 Node。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (f NodeFunc) Name() string { return f.NodeName }
func (f NodeFunc) Kind() Kind   { return f.NodeKind }

func (f NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return f.Fn(ctx, rctx, items)
}
