package core

import "time"

// ContentType 是训练内容类型。
type ContentType string

const (
	ContentScenario   ContentType = "scenario"
	ContentDrill      ContentType = "drill"
	ContentCourse     ContentType = "course"
	ContentAssessment ContentType = "assessment"
)

// ContentMeta 是内容的适配信息。
type ContentMeta struct {
	AdaptiveScaling bool `json:"adaptive_scaling" yaml:"adaptive_scaling"`
	MinLevel        int  `json:"min_level,omitempty" yaml:"min_level"`
	MaxLevel        int  `json:"max_level,omitempty" yaml:"max_level"`
}

// TrainingContent 是一条可推荐的训练内容。
type TrainingContent struct {
	ID               string      `json:"id" yaml:"id"`
	Type             ContentType `json:"type" yaml:"type"`
	Title            string      `json:"title" yaml:"title"`
	Category         string      `json:"category" yaml:"category"`
	Difficulty       int         `json:"difficulty" yaml:"difficulty"` // 1-10
	Tags             []string    `json:"tags" yaml:"tags"`
	SkillAreas       []string    `json:"skill_areas" yaml:"skill_areas"`
	Prerequisites    []string    `json:"prerequisites" yaml:"prerequisites"`
	EstimatedMinutes int         `json:"estimated_minutes" yaml:"estimated_minutes"`
	Meta             ContentMeta `json:"meta" yaml:"meta"`
}

// ClampedDifficulty 返回收敛到 [1, 10] 的难度。
func (c *TrainingContent) ClampedDifficulty() int {
	switch {
	case c.Difficulty < 1:
		return 1
	case c.Difficulty > 10:
		return 10
	}
	return c.Difficulty
}

// TargetDifficulty 返回某个等级对应的目标难度：floor(level/10)+1，收敛到 [1, 10]。
// 内容打分、难度平衡与降级排序共用这一公式。
func TargetDifficulty(level int) int {
	t := level/10 + 1
	if t < 1 {
		return 1
	}
	if t > 10 {
		return 10
	}
	return t
}

// HasSkill 判断内容是否覆盖某个技能维度。
func (c *TrainingContent) HasSkill(area string) bool {
	return contains(c.SkillAreas, area)
}

// HasTag 判断内容是否带某个标签。
func (c *TrainingContent) HasTag(tag string) bool {
	return contains(c.Tags, tag)
}

// ContentQuery 是向数据服务查询候选内容的条件。
type ContentQuery struct {
	UserID     string
	Categories []string
	MaxMinutes int // 0 表示不限
	Limit      int // 0 表示不限
}

// HistoryEntry 是用户看过的一条内容。
type HistoryEntry struct {
	ContentID string    `json:"content_id" yaml:"content_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
