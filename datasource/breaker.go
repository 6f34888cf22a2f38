package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/metrics"
)

// BreakerConfig 是熔断器配置。
type BreakerConfig struct {
	Name             string        `koanf:"name"`
	MaxRequests      uint32        `koanf:"max_requests"`      // half-open 状态下放行的请求数，默认 1
	Interval         time.Duration `koanf:"interval"`          // closed 状态下计数清零周期
	Timeout          time.Duration `koanf:"timeout"`           // open 持续时间，默认 30s
	FailureThreshold uint32        `koanf:"failure_threshold"` // 连续失败次数，默认 5
}

// Breaker 用熔断器包装 DataService。
//
// NOT_FOUND 与 INVALID_INPUT 不计入失败；熔断打开时直接返回 UNAVAILABLE。
type Breaker struct {
	next core.DataService
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker 创建熔断包装。
func NewBreaker(next core.DataService, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "datasource." + next.Name()
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	log := logger.With().Str("component", "breaker").Str("breaker", cfg.Name).Logger()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, int(to))
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsNotFound(err) || core.IsInvalidInput(err) || errors.Is(err, context.Canceled)
		},
	}
	metrics.SetBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *Breaker) Name() string { return b.next.Name() }

// State 返回熔断器状态。
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func execute[T any](b *Breaker, module string, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, core.WrapDomainError(module, core.ErrorCodeUnavailable, "circuit open", err)
		}
		return zero, err
	}
	return res.(T), nil
}

func (b *Breaker) GetUserProfile(ctx context.Context, userID string) (*core.UserSkillProfile, error) {
	return execute(b, core.ModuleProfile, func() (*core.UserSkillProfile, error) {
		return b.next.GetUserProfile(ctx, userID)
	})
}

func (b *Breaker) GetUserBehavior(ctx context.Context, userID string) (*core.UserBehaviorData, error) {
	return execute(b, core.ModuleBehavior, func() (*core.UserBehaviorData, error) {
		return b.next.GetUserBehavior(ctx, userID)
	})
}

func (b *Breaker) GetCandidateContent(ctx context.Context, q core.ContentQuery) ([]*core.TrainingContent, error) {
	return execute(b, core.ModuleCatalog, func() ([]*core.TrainingContent, error) {
		return b.next.GetCandidateContent(ctx, q)
	})
}

func (b *Breaker) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	return execute(b, core.ModuleHistory, func() ([]core.HistoryEntry, error) {
		return b.next.GetUserHistory(ctx, userID)
	})
}

// Health closed → healthy，half-open → degraded，open → unhealthy。
func (b *Breaker) Health(context.Context) core.HealthStatus {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return core.StatusUnhealthy
	case gobreaker.StateHalfOpen:
		return core.StatusDegraded
	}
	return core.StatusHealthy
}

var _ core.DataService = (*Breaker)(nil)
