package engine

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/pokeriq/trainrec/metrics"
	"github.com/pokeriq/trainrec/strategy"
)

// BatchResult 是一次批量刷新的统计。
type BatchResult struct {
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// BatchUpdateUserModels 分批刷新用户模型并清掉用户缓存。
//
// 每批 BatchSize 个用户，批与批之间至少间隔 BatchPause。单个用户失败只记录，
// 不中断整批；只有 ctx 结束时才返回错误，此时结果为已处理的部分。
func (e *Engine) BatchUpdateUserModels(ctx context.Context, userIDs []string) (BatchResult, error) {
	res := BatchResult{}
	if len(userIDs) == 0 {
		return res, nil
	}

	var limiter *rate.Limiter
	if e.cfg.BatchPause > 0 {
		limiter = rate.NewLimiter(rate.Every(e.cfg.BatchPause), 1)
	}
	log := e.logger.With().Str("op", "batch_refresh").Logger()

	for start := 0; start < len(userIDs); start += e.cfg.BatchSize {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return res, fmt.Errorf("batch refresh interrupted: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("batch refresh interrupted: %w", err)
		}

		end := min(start+e.cfg.BatchSize, len(userIDs))
		for _, userID := range userIDs[start:end] {
			err := e.refreshUser(ctx, userID)
			metrics.RecordBatchUser(err)
			if err != nil {
				res.Failed++
				if res.Errors == nil {
					res.Errors = make(map[string]string)
				}
				res.Errors[userID] = err.Error()
				log.Warn().Err(err).Str("user_id", userID).Msg("user model refresh failed")
				continue
			}
			res.Processed++
		}
		log.Debug().Int("batch_start", start).Int("batch_end", end).Msg("batch done")
	}

	log.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("batch refresh finished")
	return res, nil
}

// refreshUser 刷新单个用户：读画像与行为，更新支持离线刷新的策略，最后清缓存。
func (e *Engine) refreshUser(ctx context.Context, userID string) error {
	profile, err := e.data.GetUserProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	behavior, err := e.data.GetUserBehavior(ctx, userID)
	if err != nil {
		return fmt.Errorf("get behavior: %w", err)
	}

	for _, s := range e.registry.All() {
		updater, ok := s.(strategy.ModelUpdater)
		if !ok {
			continue
		}
		if err := updater.UpdateUserModel(ctx, profile, behavior); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return e.InvalidateUser(ctx, userID)
}

// InvalidateUser 清掉用户所有算法的缓存响应。
func (e *Engine) InvalidateUser(ctx context.Context, userID string) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
