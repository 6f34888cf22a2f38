// Package rerank 提供融合之后的后处理 Node：去重、多样性、难度平衡、新颖度、
// 最终排序与截断。
//
// 每个 Node 返回派生列表，入参 Item 不会被修改；空输入原样返回；
// 缺失的子分数按 0 处理。
package rerank

import (
	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pipeline"
)

// 子分数名称。
const (
	ScoreDiversity         = "diversity"
	ScoreNovelty           = "novelty"
	ScoreDifficultyPenalty = "difficulty_penalty"
)

// DefaultNodes 返回默认顺序的后处理 Node。
func DefaultNodes() []pipeline.Node {
	return []pipeline.Node{
		&Dedup{},
		&Diversity{},
		&DifficultyBalance{},
		&Novelty{},
		&FinalRank{},
		&TopNNode{},
	}
}

// DefaultPipeline 返回默认的后处理链路。
func DefaultPipeline() *pipeline.Pipeline {
	return pipeline.New("postprocess", DefaultNodes()...)
}

func cloneAll(items []*core.Item) []*core.Item {
	return core.CloneItems(items)
}
