// Package engine 编排一次推荐请求：缓存 → 实验分组 → 拉取数据 → 过滤 →
// 策略并发打分 → 融合 → 后处理 → 写缓存 → 记录指标。
//
// GetRecommendations 永远返回合法响应：任一环节失败或整体超时都会降级为
// 只依赖用户等级的 FALLBACK 结果。
package engine

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pokeriq/trainrec/cache"
	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/experiment"
	"github.com/pokeriq/trainrec/feedback"
	"github.com/pokeriq/trainrec/filter"
	"github.com/pokeriq/trainrec/metrics"
	"github.com/pokeriq/trainrec/pipeline"
	"github.com/pokeriq/trainrec/rank"
	"github.com/pokeriq/trainrec/rerank"
	"github.com/pokeriq/trainrec/strategy"
)

// Config 是编排层配置。
type Config struct {
	DefaultLimit    int           `koanf:"default_limit" validate:"gte=1,lte=100"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	StrategyTimeout time.Duration `koanf:"strategy_timeout" validate:"gte=0"`
	MaxConcurrent   int           `koanf:"max_concurrent" validate:"gte=0"`
	MaxCandidates   int           `koanf:"max_candidates" validate:"gte=0"`

	// FallbackLimit 降级结果的最大条数
	FallbackLimit int `koanf:"fallback_limit" validate:"gte=1"`
	// FallbackMaxConfidence 降级结果的置信度上限
	FallbackMaxConfidence float64 `koanf:"fallback_max_confidence" validate:"gt=0,lte=0.3"`

	BatchSize  int           `koanf:"batch_size" validate:"gte=1"`
	BatchPause time.Duration `koanf:"batch_pause" validate:"gte=0"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		DefaultLimit:          10,
		RequestTimeout:        2 * time.Second,
		StrategyTimeout:       800 * time.Millisecond,
		MaxCandidates:         500,
		FallbackLimit:         5,
		FallbackMaxConfidence: 0.3,
		BatchSize:             10,
		BatchPause:            100 * time.Millisecond,
	}
}

// Engine 是推荐编排器，并发安全。
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	data     core.DataService
	registry *strategy.Registry
	fanout   *strategy.Fanout
	fusion   *rank.Fusion
	weights  *rank.WeightPolicy
	post     *pipeline.Pipeline
	filters  *filter.Chain

	cache       *cache.ResponseCache
	experiments experiment.Service
	collector   feedback.Collector
	trending    *strategy.Trending

	fallbackCatalog []*core.TrainingContent

	validate *validator.Validate
	group    singleflight.Group
	now      func() time.Time
}

// Option 配置 Engine。
type Option func(*Engine)

func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

func WithLogger(logger zerolog.Logger) Option { return func(e *Engine) { e.logger = logger } }

// WithCache 启用响应缓存。
func WithCache(c *cache.ResponseCache) Option { return func(e *Engine) { e.cache = c } }

func WithExperiments(s experiment.Service) Option { return func(e *Engine) { e.experiments = s } }

func WithCollector(c feedback.Collector) Option { return func(e *Engine) { e.collector = c } }

// WithTrending 记录下发内容的热度。
func WithTrending(t *strategy.Trending) Option { return func(e *Engine) { e.trending = t } }

// WithFilters 设置打分前的候选过滤链。
func WithFilters(c *filter.Chain) Option { return func(e *Engine) { e.filters = c } }

// WithPostProcessor 替换默认的后处理链路。
func WithPostProcessor(p *pipeline.Pipeline) Option { return func(e *Engine) { e.post = p } }

func WithWeightPolicy(p *rank.WeightPolicy) Option { return func(e *Engine) { e.weights = p } }

// WithFallbackCatalog 设置降级时使用的静态内容。
func WithFallbackCatalog(contents []*core.TrainingContent) Option {
	return func(e *Engine) { e.fallbackCatalog = contents }
}

// WithClock 替换时钟。
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New 创建 Engine。data 与 registry 必填。
func New(data core.DataService, registry *strategy.Registry, opts ...Option) (*Engine, error) {
	if data == nil {
		return nil, fmt.Errorf("engine: data service is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("engine: strategy registry is required")
	}
	e := &Engine{
		cfg:         DefaultConfig(),
		logger:      zerolog.Nop(),
		data:        data,
		registry:    registry,
		fusion:      &rank.Fusion{},
		experiments: experiment.Noop{},
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.validate.Struct(e.cfg); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}

	e.logger = e.logger.With().Str("component", "engine").Logger()
	if e.weights == nil {
		e.weights = rank.DefaultWeightPolicy()
	}
	if e.weights.Perturb == nil {
		exp := e.experiments
		e.weights.Perturb = func(w core.Weights, group string) core.Weights {
			return exp.AdjustWeights(w, group)
		}
	}
	if e.post == nil {
		e.post = rerank.DefaultPipeline()
	}
	e.post.Use(&nodeHook{logger: e.logger})
	e.fanout = &strategy.Fanout{
		Timeout:       e.cfg.StrategyTimeout,
		MaxConcurrent: e.cfg.MaxConcurrent,
		Logger:        e.logger,
		OnResult: func(r strategy.Result) {
			metrics.RecordStrategy(r.Strategy, r.Latency, r.Err)
		},
	}
	return e, nil
}

// Config 返回当前配置。
func (e *Engine) Config() Config { return e.cfg }

// Registry 返回策略注册表。
func (e *Engine) Registry() *strategy.Registry { return e.registry }
