package feedback

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// StoreCollector 把用户反馈写入 KeyValueStore 的 hash feedback:{user}，
// 供过滤阶段剔除用户标记为没有帮助的内容。下发事件不落库。
type StoreCollector struct {
	Store core.KeyValueStore
}

func NewStoreCollector(store core.KeyValueStore) *StoreCollector {
	return &StoreCollector{Store: store}
}

func (c *StoreCollector) RecordRecommendation(context.Context, *core.Response, *core.Request) error {
	return nil
}

func (c *StoreCollector) RecordOutcome(ctx context.Context, ev Event) error {
	if _, err := ParseOutcome(string(ev.Type)); err != nil {
		return err
	}
	if ev.UserID == "" || ev.ContentID == "" {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "user_id and content_id are required")
	}
	if err := c.Store.HSet(ctx, Key(ev.UserID), ev.ContentID, []byte(ev.Type)); err != nil {
		return core.WrapDomainError(core.ModuleFeedback, core.ErrorCodeUnavailable, "store feedback", err)
	}
	return nil
}

// Outcomes 返回用户对各内容的最新反馈。
func (c *StoreCollector) Outcomes(ctx context.Context, userID string) (map[string]EventType, error) {
	m, err := c.Store.HGetAll(ctx, Key(userID))
	if err != nil && !core.IsStoreNotFound(err) {
		return nil, err
	}
	out := make(map[string]EventType, len(m))
	for id, v := range m {
		out[id] = EventType(v)
	}
	return out, nil
}

func (c *StoreCollector) Close() error { return nil }
