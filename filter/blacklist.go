package filter

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// BlacklistFilter 剔除下架或被运营屏蔽的内容。
type BlacklistFilter struct {
	// ContentIDs 是配置中的静态黑名单
	ContentIDs []string

	// Store 用于读取动态黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key
	Key string

	ids map[string]struct{}
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

// NewBlacklistFilter 创建黑名单过滤器，store 可以为 nil。
func NewBlacklistFilter(contentIDs []string, store BlacklistStore, key string) *BlacklistFilter {
	ids := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		ids[id] = struct{}{}
	}
	if key == "" {
		key = "blacklist:content"
	}
	return &BlacklistFilter{ContentIDs: contentIDs, Store: store, Key: key, ids: ids}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, _ *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	if _, ok := f.ids[c.ID]; ok {
		return true, nil
	}
	if f.Store == nil {
		return false, nil
	}
	list, err := f.Store.GetBlacklist(ctx, f.Key)
	if err != nil {
		return false, err
	}
	for _, id := range list {
		if id == c.ID {
			return true, nil
		}
	}
	return false, nil
}
