// Package config 加载应用配置，并维护后处理 Node 的构建注册表。
//
// 配置按优先级分三层：默认值 → YAML 文件 → 环境变量。
// 环境变量以 TRAINREC_ 开头，层级之间用双下划线分隔：
//
//	TRAINREC_ENGINE__DEFAULT_LIMIT=20      -> engine.default_limit
//	TRAINREC_CACHE__BACKEND=redis          -> cache.backend
//	TRAINREC_FEEDBACK__KAFKA__BROKERS=a,b  -> feedback.kafka.brokers
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/pokeriq/trainrec/datasource"
	"github.com/pokeriq/trainrec/engine"
	"github.com/pokeriq/trainrec/feedback"
	"github.com/pokeriq/trainrec/pipeline"
	"github.com/pokeriq/trainrec/pkg/logx"
	"github.com/pokeriq/trainrec/strategy"
)

// EnvPrefix 是环境变量前缀。
const EnvPrefix = "TRAINREC_"

// ConfigPathEnvVar 指定配置文件路径。
const ConfigPathEnvVar = "TRAINREC_CONFIG"

// App 是应用配置。
type App struct {
	Log      logx.Config    `koanf:"log"`
	Server   ServerConfig   `koanf:"server"`
	Engine   engine.Config  `koanf:"engine"`
	Cache    CacheConfig    `koanf:"cache"`
	Data     DataConfig     `koanf:"data"`
	Strategy StrategyConfig `koanf:"strategy"`
	Filters  FilterConfig   `koanf:"filters"`
	Feedback FeedbackConfig `koanf:"feedback"`

	// Experiment 实验配置文件，空表示不做实验
	Experiment string `koanf:"experiment"`

	// PostProcess 后处理 Node 列表，空表示默认链路
	PostProcess []pipeline.NodeConfig `koanf:"postprocess"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// CacheConfig 响应缓存与热度统计所用的 KV 存储。
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Backend string        `koanf:"backend" validate:"oneof=memory redis"`
	Addr    string        `koanf:"addr" validate:"required_if=Backend redis"`
	DB      int           `koanf:"db" validate:"gte=0"`
	TTL     time.Duration `koanf:"ttl" validate:"gt=0"`
}

// DataConfig 数据源：memory 读取本地 fixture，http 调用画像与内容服务。
type DataConfig struct {
	Source     string                   `koanf:"source" validate:"oneof=memory http"`
	Fixture    string                   `koanf:"fixture"`
	ProfileURL string                   `koanf:"profile_url" validate:"required_if=Source http,omitempty,url"`
	ContentURL string                   `koanf:"content_url" validate:"required_if=Source http,omitempty,url"`
	Timeout    time.Duration            `koanf:"timeout" validate:"gte=0"`
	Breaker    datasource.BreakerConfig `koanf:"breaker"`
}

type StrategyConfig struct {
	Collaborative CollaborativeConfig     `koanf:"collaborative"`
	Content       strategy.ContentWeights `koanf:"content"`
	Sequence      strategy.SequenceConfig `koanf:"sequence"`
	// PathsFile 学习路径定义文件
	PathsFile string `koanf:"paths_file"`
}

type CollaborativeConfig struct {
	TopKNeighbors    int     `koanf:"top_k_neighbors" validate:"gte=0"`
	NeighborPool     int     `koanf:"neighbor_pool" validate:"gte=0"`
	MinInteractions  int     `koanf:"min_interactions" validate:"gte=0"`
	MinSimilarity    float64 `koanf:"min_similarity" validate:"gte=0,lte=1"`
	SimilarityMetric string  `koanf:"similarity_metric" validate:"omitempty,oneof=cosine pearson"`
	SkillWeight      float64 `koanf:"skill_weight" validate:"gte=0,lte=1"`
}

// FilterConfig 打分前的候选过滤。
type FilterConfig struct {
	Blacklist       []string      `koanf:"blacklist"`
	Expr            string        `koanf:"expr"`
	TimeBudgetSlack int           `koanf:"time_budget_slack" validate:"gte=0"`
	CompletedWindow time.Duration `koanf:"completed_window" validate:"gte=0"`
	UserBlocks      bool          `koanf:"user_blocks"`
}

type FeedbackConfig struct {
	MaxEvents int                  `koanf:"max_events" validate:"gte=0"`
	Kafka     feedback.KafkaConfig `koanf:"kafka"`
}

// Default 返回默认配置。
func Default() App {
	return App{
		Log: logx.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: engine.DefaultConfig(),
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     10 * time.Minute,
		},
		Data: DataConfig{
			Source:  "memory",
			Timeout: 2 * time.Second,
			Breaker: datasource.BreakerConfig{Name: "data", FailureThreshold: 5, Timeout: 30 * time.Second},
		},
		Strategy: StrategyConfig{
			Content:  strategy.DefaultContentWeights(),
			Sequence: strategy.SequenceConfig{Dim: 16, SequenceLength: 10},
		},
		Filters:  FilterConfig{UserBlocks: true},
		Feedback: FeedbackConfig{MaxEvents: 10000},
	}
}

// sliceKeys 环境变量里以逗号分隔的列表字段。
var sliceKeys = []string{
	"feedback.kafka.brokers",
	"filters.blacklist",
}

// Load 加载配置。path 为空时读取 TRAINREC_CONFIG，都为空则只用默认值与环境变量。
func Load(path string) (*App, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &App{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey TRAINREC_ENGINE__DEFAULT_LIMIT -> engine.default_limit
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(key, out); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate 校验字段约束以及后处理 Node 类型。
func (a *App) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(a); err != nil {
		return err
	}
	for _, nc := range a.PostProcess {
		if nc.Type == "" {
			return fmt.Errorf("postprocess node without type")
		}
	}
	return nil
}
