// Package cache 缓存推荐响应，按 (用户, 算法) 分 key，读取时判断过期。
package cache

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/pokeriq/trainrec/core"
)

// DefaultTTL 是响应缓存的默认有效期。
const DefaultTTL = 10 * time.Minute

// entry 是缓存中保存的结构。
type entry struct {
	CreatedAt time.Time      `json:"created_at"`
	Response  *core.Response `json:"response"`
}

// ResponseCache 把推荐响应写入 KeyValueStore。
//
// 有效性在读取时按 CreatedAt 判断（惰性过期），过期条目在读取时删除；
// 后端 TTL 只作为兜底回收。写入使用 SetNX，同一 key 只保留第一份有效响应。
type ResponseCache struct {
	store  core.KeyValueStore
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// Option 配置 ResponseCache。
type Option func(*ResponseCache)

// WithTTL 设置有效期。
func WithTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock 替换时钟。
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// WithPrefix 设置 key 前缀，默认 "recommendations"。
func WithPrefix(prefix string) Option {
	return func(c *ResponseCache) { c.prefix = prefix }
}

// New 创建响应缓存。
func New(store core.KeyValueStore, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		store:  store,
		ttl:    DefaultTTL,
		prefix: "recommendations",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL 返回有效期。
func (c *ResponseCache) TTL() time.Duration { return c.ttl }

// Key 返回 (用户, 算法) 对应的 key。
func (c *ResponseCache) Key(userID string, alg core.Algorithm) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, userID, alg.Key())
}

// Get 读取有效的缓存响应，未命中或已过期时返回 (nil, false, nil)。
func (c *ResponseCache) Get(ctx context.Context, userID string, alg core.Algorithm) (*core.Response, bool, error) {
	key := c.Key(userID, alg)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, false, nil
		}
		return nil, false, core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "get "+key, err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Response == nil {
		// 损坏的条目直接丢弃
		_ = c.store.Delete(ctx, key)
		return nil, false, nil
	}
	if !c.fresh(e.CreatedAt) {
		_ = c.store.Delete(ctx, key)
		return nil, false, nil
	}
	return e.Response, true, nil
}

// Set 在 key 不存在（或已过期）时写入响应，返回是否写入。
func (c *ResponseCache) Set(ctx context.Context, resp *core.Response, alg core.Algorithm) (bool, error) {
	if resp == nil {
		return false, nil
	}
	key := c.Key(resp.UserID, alg)
	raw, err := json.Marshal(entry{CreatedAt: c.now(), Response: resp})
	if err != nil {
		return false, core.WrapDomainError(core.ModuleCache, core.ErrorCodeInternalError, "encode response", err)
	}

	ttl := c.backendTTL()
	ok, err := c.store.SetNX(ctx, key, raw, ttl)
	if err != nil {
		return false, core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "set "+key, err)
	}
	if ok {
		return true, nil
	}

	// 已有条目：过期则替换一次
	if _, hit, err := c.Get(ctx, resp.UserID, alg); err != nil || hit {
		return false, err
	}
	ok, err = c.store.SetNX(ctx, key, raw, ttl)
	if err != nil {
		return false, core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "set "+key, err)
	}
	return ok, nil
}

// InvalidateUser 删除用户所有算法的缓存。
func (c *ResponseCache) InvalidateUser(ctx context.Context, userID string) error {
	var firstErr error
	for _, alg := range core.RequestAlgorithms() {
		if err := c.store.Delete(ctx, c.Key(userID, alg)); err != nil && !core.IsStoreNotFound(err) && firstErr == nil {
			firstErr = core.WrapDomainError(core.ModuleCache, core.ErrorCodeUnavailable, "invalidate "+userID, err)
		}
	}
	return firstErr
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health 对支持 Ping 的后端做一次探测。
func (c *ResponseCache) Health(ctx context.Context) core.HealthStatus {
	if c.store == nil {
		return core.StatusUnhealthy
	}
	if p, ok := c.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return core.StatusUnhealthy
		}
	}
	return core.StatusHealthy
}

func (c *ResponseCache) fresh(createdAt time.Time) bool {
	return c.now().Sub(createdAt) < c.ttl
}

// backendTTL 比逻辑 TTL 多留一秒，保证读取时仍能看到条目并做惰性删除。
func (c *ResponseCache) backendTTL() int {
	return int(math.Ceil(c.ttl.Seconds())) + 1
}
