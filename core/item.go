package core

import (
	"math"

	"github.com/pokeriq/trainrec/pkg/utils"
)

// Item 是推荐链路中的统一承载结构：一条训练内容的分数、置信度、理由和标签。
// Score 与 Confidence 始终在 [0, 1]；Scores 记录各阶段的子分数，便于解释。
type Item struct {
	ID         string    `json:"content_id"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasoning"`
	Algorithm  Algorithm `json:"algorithm"`

	// 内容属性，由策略从 TrainingContent 拷贝，后处理阶段依赖它们
	Category   string `json:"category,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`

	Scores              map[string]float64 `json:"scores,omitempty"`
	ExpectedImprovement float64            `json:"expected_improvement"`
	AdaptiveLevel       int                `json:"adaptive_level,omitempty"`
	FinalRank           int                `json:"final_rank,omitempty"`
	Labels              utils.Labels       `json:"labels,omitempty"`
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Scores: make(map[string]float64),
	}
}

// NewContentItem 用内容的分类和难度初始化 Item。
func NewContentItem(c *TrainingContent, alg Algorithm) *Item {
	it := NewItem(c.ID)
	it.Category = c.Category
	it.Difficulty = c.ClampedDifficulty()
	it.Algorithm = alg
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	it.Labels = it.Labels.Put(key, lbl)
}

// SetScore 记录一个子分数。
func (it *Item) SetScore(name string, v float64) {
	if it.Scores == nil {
		it.Scores = make(map[string]float64)
	}
	it.Scores[name] = v
}

// GetScore 读取子分数，不存在时返回 0。
func (it *Item) GetScore(name string) float64 {
	return it.Scores[name]
}

// AddReason 追加一条推荐理由，忽略空串和重复。
func (it *Item) AddReason(reason string) {
	if reason == "" {
		return
	}
	for _, r := range it.Reasons {
		if r == reason {
			return
		}
	}
	it.Reasons = append(it.Reasons, reason)
}

// Clamp 把 Score 和 Confidence 收敛到 [0, 1]。
func (it *Item) Clamp() *Item {
	it.Score = Clamp01(it.Score)
	it.Confidence = Clamp01(it.Confidence)
	return it
}

// Clone 深拷贝，后处理阶段在拷贝上修改，不影响上游列表。
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	if it.Reasons != nil {
		out.Reasons = append([]string(nil), it.Reasons...)
	}
	if it.Scores != nil {
		out.Scores = make(map[string]float64, len(it.Scores))
		for k, v := range it.Scores {
			out.Scores[k] = v
		}
	}
	out.Labels = it.Labels.Clone()
	return &out
}

// CloneItems 深拷贝一组 Item，跳过 nil。
func CloneItems(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Clamp01 收敛到 [0, 1]，NaN 视为 0。
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
