package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/api"
	"github.com/pokeriq/trainrec/cache"
	"github.com/pokeriq/trainrec/config"
	_ "github.com/pokeriq/trainrec/config/builders"
	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/datasource"
	"github.com/pokeriq/trainrec/engine"
	"github.com/pokeriq/trainrec/experiment"
	"github.com/pokeriq/trainrec/feedback"
	"github.com/pokeriq/trainrec/filter"
	"github.com/pokeriq/trainrec/store"
	"github.com/pokeriq/trainrec/strategy"
)

// blacklistKey 是 KV 中运营黑名单的 hash key。
const blacklistKey = "blacklist:content"

// app 持有一次进程运行所需的全部组件。
type app struct {
	cfg    *config.App
	logger zerolog.Logger

	kv        core.KeyValueStore
	engine    *engine.Engine
	stats     *feedback.MemoryCollector
	collector feedback.Multi
	trending  *strategy.Trending
}

// buildApp 按配置组装存储、数据源、策略、过滤、反馈与编排层。
func buildApp(ctx context.Context, cfg *config.App, logger zerolog.Logger) (*app, error) {
	kv, err := store.Open(ctx, cfg.Cache.Backend, cfg.Cache.Addr, cfg.Cache.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, kv: kv}

	data, neighbors, err := buildData(cfg.Data, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	data = datasource.NewWithPreferences(data, kv, logger)

	registry, err := buildStrategies(cfg.Strategy, neighbors, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	chain, err := buildFilters(cfg.Filters, kv, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.stats = feedback.NewMemoryCollector(cfg.Feedback.MaxEvents)
	a.collector = feedback.Multi{a.stats, feedback.NewStoreCollector(kv)}
	if len(cfg.Feedback.Kafka.Brokers) > 0 {
		kc, err := feedback.NewKafkaCollector(cfg.Feedback.Kafka, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("kafka collector: %w", err)
		}
		a.collector = append(a.collector, kc)
	}
	a.trending = &strategy.Trending{Store: kv}

	post, err := config.BuildPostProcessor(cfg.PostProcess)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []engine.Option{
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(logger),
		engine.WithFilters(chain),
		engine.WithCollector(a.collector),
		engine.WithTrending(a.trending),
		engine.WithPostProcessor(post),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, engine.WithCache(cache.New(kv, cache.WithTTL(cfg.Cache.TTL))))
	}
	if cfg.Experiment != "" {
		exp, err := experiment.LoadFile(cfg.Experiment)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		assigner, err := experiment.NewAssigner(exp)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		opts = append(opts, engine.WithExperiments(assigner))
	}

	a.engine, err = engine.New(data, registry, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info().
		Str("data", cfg.Data.Source).
		Str("store", kv.Name()).
		Bool("cache", cfg.Cache.Enabled).
		Int("strategies", len(registry.All())).
		Int("collectors", len(a.collector)).
		Msg("trainrec assembled")
	return a, nil
}

func buildData(cfg config.DataConfig, logger zerolog.Logger) (core.DataService, strategy.NeighborStore, error) {
	switch cfg.Source {
	case "http":
		h := datasource.NewHTTP(cfg.ProfileURL, cfg.ContentURL, cfg.Timeout)
		return datasource.NewBreaker(h, cfg.Breaker, logger), h, nil
	default:
		if cfg.Fixture == "" {
			m := datasource.NewMemory()
			return m, m, nil
		}
		m, err := datasource.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
}

func buildStrategies(cfg config.StrategyConfig, neighbors strategy.NeighborStore, logger zerolog.Logger) (*strategy.Registry, error) {
	var paths strategy.PathStore = strategy.StaticPaths(nil)
	if cfg.PathsFile != "" {
		p, err := strategy.LoadPathsFile(cfg.PathsFile)
		if err != nil {
			return nil, err
		}
		paths = p
	}
	cc := cfg.Collaborative
	return strategy.NewRegistry(
		&strategy.Collaborative{
			Store:            neighbors,
			TopKNeighbors:    cc.TopKNeighbors,
			NeighborPool:     cc.NeighborPool,
			MinInteractions:  cc.MinInteractions,
			MinSimilarity:    cc.MinSimilarity,
			SimilarityMetric: cc.SimilarityMetric,
			SkillWeight:      cc.SkillWeight,
		},
		&strategy.Content{Weights: cfg.Content},
		strategy.NewSequence(cfg.Sequence, logger),
		&strategy.Path{Store: paths},
	), nil
}

func buildFilters(cfg config.FilterConfig, kv core.KeyValueStore, logger zerolog.Logger) (*filter.Chain, error) {
	adapter := filter.NewStoreAdapter(kv)
	filters := []filter.Filter{
		&filter.ExcludeFilter{},
		&filter.LevelRangeFilter{},
		&filter.TimeBudgetFilter{Slack: cfg.TimeBudgetSlack},
		filter.NewBlacklistFilter(cfg.Blacklist, adapter, blacklistKey),
	}
	if cfg.CompletedWindow > 0 {
		filters = append(filters, &filter.CompletedFilter{Window: cfg.CompletedWindow})
	}
	if cfg.UserBlocks {
		filters = append(filters, filter.NewUserBlockFilter(adapter))
	}
	if cfg.Expr != "" {
		f, err := filter.NewExprFilter(cfg.Expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filter.NewChain(logger, filters...), nil
}

// server 创建 HTTP 层。
func (a *app) server() *api.Server {
	return api.New(a.engine,
		api.WithCollector(a.collector),
		api.WithStats(a.stats),
		api.WithTrending(a.trending),
		api.WithPreferenceStore(a.kv),
		api.WithLogger(a.logger),
	)
}

// Close 刷新反馈并关闭存储。
func (a *app) Close() error {
	var errs []error
	if a.collector != nil {
		errs = append(errs, a.collector.Close())
	}
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	return errors.Join(errs...)
}
