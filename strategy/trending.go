package strategy

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// TrendingEntry 是热门内容及其计数。
type TrendingEntry struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
}

// Trending 用有序集合统计内容被推荐的次数。
type Trending struct {
	Store core.KeyValueStore
	Key   string // 例如 "trending:content"
}

func (t *Trending) key() string {
	if t.Key == "" {
		return "trending:content"
	}
	return t.Key
}

// Record 为每条推荐结果计数加一。
func (t *Trending) Record(ctx context.Context, items []*core.Item) error {
	if t == nil || t.Store == nil {
		return nil
	}
	for _, it := range items {
		if err := t.Store.ZIncrBy(ctx, t.key(), 1, it.ID); err != nil {
			return err
		}
	}
	return nil
}

// Top 返回计数最高的 n 条内容。
func (t *Trending) Top(ctx context.Context, n int) ([]TrendingEntry, error) {
	if t == nil || t.Store == nil || n <= 0 {
		return nil, nil
	}
	members, err := t.Store.ZRange(ctx, t.key(), 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]TrendingEntry, 0, len(members))
	for _, m := range members {
		score, err := t.Store.ZScore(ctx, t.key(), m)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, err
		}
		out = append(out, TrendingEntry{ContentID: m, Score: score})
	}
	return out, nil
}
