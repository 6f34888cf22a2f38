package filter

import (
	"context"
	"sort"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/feedback"
)

// StoreAdapter 把 KeyValueStore 适配为 BlacklistStore 与 UserBlockStore。
//
// 黑名单存放在 hash {key} 中，field 为内容 ID；
// 用户反馈存放在 hash feedback:{userID} 中，field 为内容 ID，value 为反馈结果。
type StoreAdapter struct {
	Store core.KeyValueStore
}

func NewStoreAdapter(store core.KeyValueStore) *StoreAdapter {
	return &StoreAdapter{Store: store}
}

func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	m, err := a.Store.HGetAll(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID string) ([]string, error) {
	m, err := a.Store.HGetAll(ctx, feedback.Key(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0)
	for id, v := range m {
		if feedback.EventType(v) == feedback.EventNotHelpful {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

var (
	_ BlacklistStore = (*StoreAdapter)(nil)
	_ UserBlockStore = (*StoreAdapter)(nil)
)
