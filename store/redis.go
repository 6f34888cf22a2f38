package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pokeriq/trainrec/core"
)

// RedisStore 是 Redis 实现的 KeyValueStore，多实例部署时共享缓存和热门计数。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 连接 Redis 并 Ping 一次。
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "redis ping failed", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient 复用已有的客户端。
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

func ttlDuration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}

// mapErr 把 redis.Nil 映射为 NOT_FOUND，其余错误映射为 UNAVAILABLE。
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return core.ErrStoreNotFound
	default:
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "redis", err)
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return mapErr(r.client.Set(ctx, key, value, ttlDuration(ttl)).Err())
}

func (r *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl ...int) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttlDuration(ttl)).Result()
	return ok, mapErr(err)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return mapErr(r.client.Del(ctx, key).Err())
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, mapErr(err)
	}

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	pipe := r.client.Pipeline()
	expiration := ttlDuration(ttl)
	for k, v := range kvs {
		pipe.Set(ctx, k, v, expiration)
	}
	_, err := pipe.Exec(ctx)
	return mapErr(err)
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return mapErr(r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (r *RedisStore) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	return mapErr(r.client.ZIncrBy(ctx, key, incr, member).Err())
}

func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := r.client.ZRevRange(ctx, key, start, stop).Result()
	return members, mapErr(err)
}

func (r *RedisStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	score, err := r.client.ZScore(ctx, key, member).Result()
	return score, mapErr(err)
}

func (r *RedisStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	val, err := r.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return val, nil
}

func (r *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	return mapErr(r.client.HSet(ctx, key, field, value).Err())
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	vals, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	result := make(map[string][]byte, len(vals))
	for k, v := range vals {
		result[k] = []byte(v)
	}
	return result, nil
}

// Ping 用于健康检查。
func (r *RedisStore) Ping(ctx context.Context) error {
	return mapErr(r.client.Ping(ctx).Err())
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var (
	_ core.Store         = (*RedisStore)(nil)
	_ core.KeyValueStore = (*RedisStore)(nil)
)
