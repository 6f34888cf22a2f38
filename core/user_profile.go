package core

import (
	"sort"
	"time"
)

// 技能维度
const (
	SkillPreflop     = "preflop"
	SkillPostflop    = "postflop"
	SkillPsychology  = "psychology"
	SkillMathematics = "mathematics"
	SkillBankroll    = "bankroll"
	SkillTournament  = "tournament"
)

// 玩家类型
const (
	PlayerTypeTight      = "tight"
	PlayerTypeLoose      = "loose"
	PlayerTypeAggressive = "aggressive"
	PlayerTypePassive    = "passive"
	PlayerTypeBalanced   = "balanced"
)

// Preferences 是用户的训练偏好。
type Preferences struct {
	TrainingMode   string `json:"training_mode" yaml:"training_mode"`     // scenario / drill / course / assessment
	SessionMinutes int    `json:"session_minutes" yaml:"session_minutes"` // 单次训练时长
	Difficulty     int    `json:"difficulty" yaml:"difficulty"`           // 期望难度 1-10，0 表示未设置
}

// UserSkillProfile 是用户技能画像，驱动所有打分策略。
//
// 由外部数据服务提供，请求期间只读。
type UserSkillProfile struct {
	UserID     string `json:"user_id" yaml:"user_id"`
	Level      int    `json:"level" yaml:"level"` // 1-100
	PlayerType string `json:"player_type" yaml:"player_type"`

	// 技能分数，key 是技能维度，value 在 0-100
	Skills map[string]float64 `json:"skills" yaml:"skills"`

	Weaknesses  []string    `json:"weaknesses" yaml:"weaknesses"`
	Strengths   []string    `json:"strengths" yaml:"strengths"`
	FocusAreas  []string    `json:"focus_areas" yaml:"focus_areas"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`

	UpdateTime time.Time `json:"update_time" yaml:"update_time"`
}

// NewUserSkillProfile 创建一个 1 级的空画像。
func NewUserSkillProfile(userID string) *UserSkillProfile {
	return &UserSkillProfile{
		UserID:     userID,
		Level:      1,
		PlayerType: PlayerTypeBalanced,
		Skills:     make(map[string]float64),
		UpdateTime: time.Now(),
	}
}

// ClampedLevel 返回收敛到 [1, 100] 的等级。
func (p *UserSkillProfile) ClampedLevel() int {
	if p == nil || p.Level < 1 {
		return 1
	}
	if p.Level > 100 {
		return 100
	}
	return p.Level
}

// Skill 返回某个技能分数，未知技能视为 0。
func (p *UserSkillProfile) Skill(name string) float64 {
	if p == nil || p.Skills == nil {
		return 0
	}
	return p.Skills[name]
}

// SkillGap 返回 (100 - skill) / 100，越大说明越需要练习。
func (p *UserSkillProfile) SkillGap(name string) float64 {
	return Clamp01((100 - p.Skill(name)) / 100)
}

// SkillVector 按给定 key 顺序输出归一化技能向量。
func (p *UserSkillProfile) SkillVector(keys []string) []float64 {
	vec := make([]float64, len(keys))
	for i, k := range keys {
		vec[i] = p.Skill(k) / 100
	}
	return vec
}

// SkillKeys 返回排序后的技能维度。
func (p *UserSkillProfile) SkillKeys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.Skills))
	for k := range p.Skills {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsWeakness 判断 area 是否在弱项里。
func (p *UserSkillProfile) IsWeakness(area string) bool {
	return p != nil && contains(p.Weaknesses, area)
}

// IsFocus 判断 area 是否在关注领域里。
func (p *UserSkillProfile) IsFocus(area string) bool {
	return p != nil && contains(p.FocusAreas, area)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
