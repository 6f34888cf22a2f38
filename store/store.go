// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 接口定义在 core 包，这里只有后端：
//
//	var cache core.KeyValueStore = store.NewMemoryStore()
//	var shared core.KeyValueStore = store.NewRedisStoreFromClient(client)
package store

import (
	"context"
	"fmt"

	"github.com/pokeriq/trainrec/core"
)

// Open 按后端名称构建 KeyValueStore，支持 memory 和 redis。
func Open(ctx context.Context, backend, addr string, db int) (core.KeyValueStore, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, addr, db)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
