package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pokeriq/trainrec/core"
)

// Hook 在每个 Node 前后被调用，用于日志与指标。
type Hook interface {
	BeforeNode(ctx context.Context, rctx *core.RecommendContext, node Node, items []*core.Item)
	AfterNode(ctx context.Context, rctx *core.RecommendContext, node Node, items []*core.Item, elapsed time.Duration, err error)
}

// Pipeline 把后处理逻辑拆成可组合的 Node 链，按顺序执行。
type Pipeline struct {
	Name  string
	Nodes []Node
	Hooks []Hook
}

// New 创建 Pipeline。
func New(name string, nodes ...Node) *Pipeline {
	return &Pipeline{Name: name, Nodes: nodes}
}

// Use 追加 Hook。
func (p *Pipeline) Use(hooks ...Hook) *Pipeline {
	p.Hooks = append(p.Hooks, hooks...)
	return p
}

// Run 依次执行 Node；任何 Node 出错或 ctx 取消时立即返回。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, h := range p.Hooks {
			h.BeforeNode(ctx, rctx, node, cur)
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		for _, h := range p.Hooks {
			h.AfterNode(ctx, rctx, node, next, time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// NodeNames 返回 Node 名称列表。
func (p *Pipeline) NodeNames() []string {
	names := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		names[i] = n.Name()
	}
	return names
}
