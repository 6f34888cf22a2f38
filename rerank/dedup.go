package rerank

import (
	"context"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// Dedup 按 ID 去重，保留第一次出现的位置。
type Dedup struct{}

func (n *Dedup) Name() string        { return "rerank.dedup" }
func (n *Dedup) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Dedup) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it.Clone())
	}
	return out, nil
}
