package rerank

import (
	"context"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// Diversity 按分类做多样性重排：
//   - 分类顺序为首次出现的顺序，分类内保持输入顺序
//   - 每个分类最多保留 ceil(total/CapDivisor) 条
//   - 在分类之间轮流取，避免单一分类占满列表
//
// 每条保留的内容写入子分数 diversity = 1/(1+分类内位置)。
// 没有分类的内容视为同一个空分类。
type Diversity struct {
	// CapDivisor 默认 4
	CapDivisor int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	div := n.CapDivisor
	if div <= 0 {
		div = 4
	}
	limit := (len(items) + div - 1) / div

	var order []string
	groups := make(map[string][]*core.Item)
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := groups[it.Category]; !ok {
			order = append(order, it.Category)
		}
		groups[it.Category] = append(groups[it.Category], it)
	}

	out := make([]*core.Item, 0, len(items))
	for pos := 0; pos < limit; pos++ {
		for _, cate := range order {
			g := groups[cate]
			if pos >= len(g) {
				continue
			}
			it := g[pos].Clone()
			it.SetScore(ScoreDiversity, 1/float64(1+pos))
			out = append(out, it)
		}
	}
	return out, nil
}
