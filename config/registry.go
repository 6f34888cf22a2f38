package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pokeriq/trainrec/pipeline"
	"github.com/pokeriq/trainrec/rerank"
)

// 使用配置驱动的后处理链路时，需在入口处 import _ "github.com/pokeriq/trainrec/config/builders"
// 以触发内置 Node（rerank.dedup、rerank.diversity 等）的 init 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，建议在 init 中调用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回已注册的 Node 类型（排序）。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	return sortedTypes()
}

// sortedTypes 调用方需持有读锁。
func sortedTypes() []string {
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回包含所有已注册 Node 类型的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// validateNodes 在构建前检查所有类型均已注册，错误里带上可用类型。
func validateNodes(nodes []pipeline.NodeConfig) error {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for i, nc := range nodes {
		if _, ok := defaultBuilders[nc.Type]; !ok {
			return fmt.Errorf("postprocess[%d]: unsupported node type %q (supported: %v)", i, nc.Type, sortedTypes())
		}
	}
	return nil
}

// BuildPostProcessor 按配置构建后处理链路；没有配置 Node 时使用默认链路。
func BuildPostProcessor(nodes []pipeline.NodeConfig) (*pipeline.Pipeline, error) {
	if len(nodes) == 0 {
		return rerank.DefaultPipeline(), nil
	}
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}
	var cfg pipeline.Config
	cfg.Pipeline.Name = "postprocess"
	cfg.Pipeline.Nodes = nodes
	return cfg.BuildPipeline(DefaultFactory())
}
