package filter

import (
	"context"

	"github.com/pokeriq/trainrec/core"
)

// UserBlockFilter 剔除用户反馈为"没有帮助"的内容。
type UserBlockFilter struct {
	Store UserBlockStore
}

// UserBlockStore 返回用户屏蔽的内容 ID。
type UserBlockStore interface {
	GetUserBlocks(ctx context.Context, userID string) ([]string, error)
}

func NewUserBlockFilter(store UserBlockStore) *UserBlockFilter {
	return &UserBlockFilter{Store: store}
}

func (f *UserBlockFilter) Name() string { return "filter.user_block" }

func (f *UserBlockFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	if f.Store == nil || rctx == nil || rctx.UserID == "" {
		return false, nil
	}
	blocks, err := f.Store.GetUserBlocks(ctx, rctx.UserID)
	if err != nil {
		return false, err
	}
	for _, id := range blocks {
		if id == c.ID {
			return true, nil
		}
	}
	return false, nil
}
