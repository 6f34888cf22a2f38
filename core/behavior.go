package core

import (
	"sort"
	"time"
)

// Action 是一次训练中的单个动作（下注、弃牌、提示查看等）。
type Action struct {
	Type      string    `json:"type" yaml:"type"`
	Value     float64   `json:"value" yaml:"value"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Interaction 是一次训练会话中与某条内容的交互。
type Interaction struct {
	SessionID        string    `json:"session_id" yaml:"session_id"`
	ContentID        string    `json:"content_id" yaml:"content_id"`
	Category         string    `json:"category" yaml:"category"`
	DurationSeconds  int       `json:"duration_seconds" yaml:"duration_seconds"`
	PerformanceScore float64   `json:"performance_score" yaml:"performance_score"` // 0-100
	CompletionRate   float64   `json:"completion_rate" yaml:"completion_rate"`     // 0-100
	Timestamp        time.Time `json:"timestamp" yaml:"timestamp"`
	Actions          []Action  `json:"actions,omitempty" yaml:"actions"`
}

// LearningPatterns 是行为数据上的聚合统计。
type LearningPatterns struct {
	ActiveHours        []int   `json:"active_hours" yaml:"active_hours"`
	AveragePerformance float64 `json:"average_performance" yaml:"average_performance"`
	ImprovementRate    float64 `json:"improvement_rate" yaml:"improvement_rate"`
	SessionsPerWeek    float64 `json:"sessions_per_week" yaml:"sessions_per_week"`
}

// UserBehaviorData 是用户的历史行为。
type UserBehaviorData struct {
	UserID       string           `json:"user_id" yaml:"user_id"`
	Interactions []Interaction    `json:"interactions" yaml:"interactions"`
	Patterns     LearningPatterns `json:"patterns" yaml:"patterns"`
}

// RecentSequence 返回按时间升序排列的最近 n 次交互，不修改原数据。
func (b *UserBehaviorData) RecentSequence(n int) []Interaction {
	if b == nil || len(b.Interactions) == 0 || n <= 0 {
		return nil
	}
	seq := append([]Interaction(nil), b.Interactions...)
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].Timestamp.Before(seq[j].Timestamp)
	})
	if len(seq) > n {
		seq = seq[len(seq)-n:]
	}
	return seq
}

// ContentPerformance 返回每条内容的平均表现分。
func (b *UserBehaviorData) ContentPerformance() map[string]float64 {
	return b.average(func(in Interaction) string { return in.ContentID }, func(in Interaction) float64 { return in.PerformanceScore })
}

// ContentCompletion 返回每条内容的最高完成率。
func (b *UserBehaviorData) ContentCompletion() map[string]float64 {
	out := make(map[string]float64)
	if b == nil {
		return out
	}
	for _, in := range b.Interactions {
		if in.ContentID == "" {
			continue
		}
		if in.CompletionRate > out[in.ContentID] {
			out[in.ContentID] = in.CompletionRate
		}
	}
	return out
}

// CategoryPerformance 返回每个分类的平均表现分。
func (b *UserBehaviorData) CategoryPerformance() map[string]float64 {
	return b.average(func(in Interaction) string { return in.Category }, func(in Interaction) float64 { return in.PerformanceScore })
}

func (b *UserBehaviorData) average(key func(Interaction) string, val func(Interaction) float64) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	if b != nil {
		for _, in := range b.Interactions {
			k := key(in)
			if k == "" {
				continue
			}
			sums[k] += val(in)
			counts[k]++
		}
	}
	for k, c := range counts {
		sums[k] /= float64(c)
	}
	return sums
}

// InteractionCount 返回交互次数。
func (b *UserBehaviorData) InteractionCount() int {
	if b == nil {
		return 0
	}
	return len(b.Interactions)
}
