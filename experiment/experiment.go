// Package experiment 负责 A/B 实验分桶以及按实验组调整融合权重。
package experiment

import (
	"context"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/pokeriq/trainrec/core"
)

// Buckets 是分桶总数，Traffic 精度为 0.01%。
const Buckets = 10000

// Service 是编排层依赖的实验服务。
type Service interface {
	// AssignUserToExperiment 返回用户所在实验组；不在任何组时 ok 为 false
	AssignUserToExperiment(ctx context.Context, userID string) (variant string, ok bool)

	// AdjustWeights 按实验组调整权重，返回值已归一化
	AdjustWeights(base core.Weights, variant string) core.Weights
}

// Variant 是一个实验组。
type Variant struct {
	Name string `yaml:"name" json:"name" koanf:"name"`
	// Traffic 是流量占比，[0, 1]
	Traffic float64 `yaml:"traffic" json:"traffic" koanf:"traffic"`
	// WeightMultipliers 按算法名放大或缩小基础权重，未列出的算法保持不变
	WeightMultipliers map[string]float64 `yaml:"weight_multipliers" json:"weight_multipliers" koanf:"weight_multipliers"`
}

// Experiment 是一组互斥的实验组。
type Experiment struct {
	Name     string    `yaml:"name" json:"name" koanf:"name"`
	Enabled  bool      `yaml:"enabled" json:"enabled" koanf:"enabled"`
	Variants []Variant `yaml:"variants" json:"variants" koanf:"variants"`
}

// Validate 检查流量与组名。
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	var total float64
	seen := make(map[string]struct{}, len(e.Variants))
	for _, v := range e.Variants {
		if v.Name == "" {
			return fmt.Errorf("experiment %s: variant name is required", e.Name)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("experiment %s: duplicate variant %s", e.Name, v.Name)
		}
		seen[v.Name] = struct{}{}
		if v.Traffic < 0 || v.Traffic > 1 {
			return fmt.Errorf("experiment %s: variant %s traffic %.4f out of [0,1]", e.Name, v.Name, v.Traffic)
		}
		for alg, m := range v.WeightMultipliers {
			if _, err := core.ParseAlgorithm(alg); err != nil {
				return fmt.Errorf("experiment %s: variant %s: %w", e.Name, v.Name, err)
			}
			if m < 0 {
				return fmt.Errorf("experiment %s: variant %s: negative multiplier for %s", e.Name, v.Name, alg)
			}
		}
		total += v.Traffic
	}
	if total > 1+1e-9 {
		return fmt.Errorf("experiment %s: total traffic %.4f exceeds 1", e.Name, total)
	}
	return nil
}

// Assigner 用 xxhash(实验名:用户) 做确定性分桶。
// 同一用户在同一实验中总是落在同一组，不同实验之间分桶独立。
type Assigner struct {
	exp      Experiment
	bounds   []uint64
	variants map[string]Variant
}

// NewAssigner 校验实验配置并构建分桶边界。
func NewAssigner(exp Experiment) (*Assigner, error) {
	if err := exp.Validate(); err != nil {
		return nil, core.WrapDomainError(core.ModuleExperiment, core.ErrorCodeInvalidInput, "invalid experiment", err)
	}
	a := &Assigner{exp: exp, variants: make(map[string]Variant, len(exp.Variants))}
	var acc float64
	for _, v := range exp.Variants {
		acc += v.Traffic
		a.bounds = append(a.bounds, uint64(acc*Buckets+0.5))
		a.variants[v.Name] = v
	}
	return a, nil
}

// Experiment 返回实验配置。
func (a *Assigner) Experiment() Experiment { return a.exp }

// Bucket 返回用户在本实验中的桶号，[0, Buckets)。
func (a *Assigner) Bucket(userID string) uint64 {
	return xxhash.Sum64String(a.exp.Name+":"+userID) % Buckets
}

func (a *Assigner) AssignUserToExperiment(_ context.Context, userID string) (string, bool) {
	if !a.exp.Enabled || userID == "" {
		return "", false
	}
	b := a.Bucket(userID)
	for i, bound := range a.bounds {
		if b < bound {
			return a.exp.Variants[i].Name, true
		}
	}
	return "", false
}

func (a *Assigner) AdjustWeights(base core.Weights, variant string) core.Weights {
	out := base.Clone()
	v, ok := a.variants[variant]
	if !ok {
		return out.Normalize()
	}
	for name, m := range v.WeightMultipliers {
		alg, err := core.ParseAlgorithm(name)
		if err != nil {
			continue
		}
		if _, present := out[alg]; present {
			out[alg] *= m
		}
	}
	return out.Normalize()
}

// Health 实验服务是纯内存计算，始终健康。
func (a *Assigner) Health(context.Context) core.HealthStatus { return core.StatusHealthy }

// Noop 不做任何分组。
type Noop struct{}

func (Noop) AssignUserToExperiment(context.Context, string) (string, bool) { return "", false }
func (Noop) AdjustWeights(base core.Weights, _ string) core.Weights     { return base.Normalize() }

// ParseYAML 解析实验配置，顶层 key 为 experiment。
func ParseYAML(data []byte) (Experiment, error) {
	var doc struct {
		Experiment Experiment `yaml:"experiment"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Experiment{}, fmt.Errorf("parse experiment yaml: %w", err)
	}
	return doc.Experiment, nil
}

// LoadFile 从文件加载实验配置。
func LoadFile(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("read experiment file: %w", err)
	}
	return ParseYAML(data)
}

var (
	_ Service = (*Assigner)(nil)
	_ Service = Noop{}
)
