package strategy

import "github.com/pokeriq/trainrec/core"

// skillGap 返回用户在内容覆盖技能上的平均差距，没有可用技能时为 0.5。
func skillGap(p *core.UserSkillProfile, c *core.TrainingContent) float64 {
	areas := c.SkillAreas
	if len(areas) == 0 && c.Category != "" {
		areas = []string{c.Category}
	}
	var sum float64
	var n int
	for _, a := range areas {
		if _, ok := p.Skills[a]; !ok {
			continue
		}
		sum += p.SkillGap(a)
		n++
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// preferredDifficulty 优先使用用户设置的难度偏好。
func preferredDifficulty(p *core.UserSkillProfile) int {
	if d := p.Preferences.Difficulty; d >= 1 && d <= 10 {
		return d
	}
	return core.TargetDifficulty(p.ClampedLevel())
}

// touches 判断内容是否覆盖 areas 中任一项（技能维度或分类）。
func touches(c *core.TrainingContent, areas []string) (string, bool) {
	for _, a := range areas {
		if c.Category == a || c.HasSkill(a) || c.HasTag(a) {
			return a, true
		}
	}
	return "", false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
