// Package trainrec 为扑克训练平台生成个性化训练推荐。
//
// 设计要点：
// - Strategy 并发打分：协同过滤、内容匹配、序列模型、学习路径各自独立，单个失败不影响整体
// - 按等级加权融合：新手偏向内容与路径，高手偏向协同与序列，实验分组可再调整权重
// - Pipeline 后处理：去重、多样性、难度、新颖度、最终排序都是可配置的 Node
// - 永不失败：任意环节出错或超时都降级为按等级匹配的 FALLBACK 结果
package trainrec

import (
	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/engine"
)

// 轻量 facade：便于直接 import "trainrec" 使用核心类型。
type (
	Engine   = engine.Engine
	Request  = core.Request
	Response = core.Response
	Item     = core.Item
)

type Algorithm = core.Algorithm

const (
	AlgorithmHybrid        = core.AlgorithmHybrid
	AlgorithmCollaborative = core.AlgorithmCollaborative
	AlgorithmContentBased  = core.AlgorithmContentBased
	AlgorithmDeepLearning  = core.AlgorithmDeepLearning
	AlgorithmLearningPath  = core.AlgorithmLearningPath
	AlgorithmFallback      = core.AlgorithmFallback
)
