package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/pokeriq/trainrec/core"
)

// ContentWeights 是内容匹配各因子的权重。
type ContentWeights struct {
	SkillMatch    float64 `koanf:"skill_match" yaml:"skill_match"`
	DifficultyFit float64 `koanf:"difficulty_fit" yaml:"difficulty_fit"`
	Preference    float64 `koanf:"preference" yaml:"preference"`
	History       float64 `koanf:"history" yaml:"history"`
}

// DefaultContentWeights 返回默认权重 0.4 / 0.3 / 0.2 / 0.1。
func DefaultContentWeights() ContentWeights {
	return ContentWeights{SkillMatch: 0.4, DifficultyFit: 0.3, Preference: 0.2, History: 0.1}
}

func (w ContentWeights) sum() float64 {
	return w.SkillMatch + w.DifficultyFit + w.Preference + w.History
}

// Content 是基于内容的策略（Content-Based）。
//
// 核心思想："内容覆盖的技能正是用户的短板，难度合适，形式符合偏好"
//
// 因子：
//   - skill_match：用户在内容技能上的差距，弱项或目标技能额外加成
//   - difficulty_fit：内容难度与目标难度的接近程度
//   - preference：关注领域、训练形式、单次时长
//   - history：用户在同类内容上的历史表现，表现越差越需要练
type Content struct {
	Weights ContentWeights
}

func (s *Content) Name() string              { return "strategy.content" }
func (s *Content) Algorithm() core.Algorithm { return core.AlgorithmContentBased }

type contentFactors struct {
	skillMatch, difficultyFit, preference, history float64
	hasHistory                                     bool
}

func (s *Content) Recommend(
	_ context.Context,
	rctx *core.RecommendContext,
	candidates []*core.TrainingContent,
) ([]*core.Item, error) {
	if rctx.Profile == nil {
		return nil, missingProfile(s.Name())
	}
	w := s.Weights
	if w.sum() <= 0 {
		w = DefaultContentWeights()
	}
	total := w.sum()
	target := preferredDifficulty(rctx.Profile)
	categoryPerf := rctx.Behavior.CategoryPerformance()
	contentPerf := rctx.Behavior.ContentPerformance()

	out := make([]*core.Item, 0, len(candidates))
	for _, c := range eligible(rctx, candidates) {
		f := s.factors(rctx, c, target, categoryPerf, contentPerf)

		it := core.NewContentItem(c, s.Algorithm())
		it.Score = (w.SkillMatch*f.skillMatch + w.DifficultyFit*f.difficultyFit +
			w.Preference*f.preference + w.History*f.history) / total
		it.Confidence = 0.6
		if f.hasHistory {
			it.Confidence += 0.15
		}
		if len(rctx.Profile.Skills) > 0 {
			it.Confidence += 0.15
		}
		it.AdaptiveLevel = target
		it.ExpectedImprovement = f.skillMatch * f.difficultyFit * 10
		it.SetScore("skill_match", f.skillMatch)
		it.SetScore("difficulty_fit", f.difficultyFit)
		it.SetScore("preference", f.preference)
		it.SetScore("history", f.history)
		for _, r := range s.reasons(rctx, c, w, f) {
			it.AddReason(r)
		}
		out = append(out, it.Clamp())
	}
	sortByScore(out)
	return out, nil
}

func (s *Content) factors(rctx *core.RecommendContext, c *core.TrainingContent, target int, categoryPerf, contentPerf map[string]float64) contentFactors {
	p := rctx.Profile
	var f contentFactors

	f.skillMatch = skillGap(p, c)
	if _, ok := touches(c, p.Weaknesses); ok {
		f.skillMatch += 0.2
	}
	if _, ok := touches(c, rctx.TargetSkills()); ok {
		f.skillMatch += 0.2
	}
	f.skillMatch = core.Clamp01(f.skillMatch)

	f.difficultyFit = 1 - float64(absInt(c.ClampedDifficulty()-target))/9

	var pref float64
	if _, ok := touches(c, p.FocusAreas); ok {
		pref++
	}
	switch mode := p.Preferences.TrainingMode; {
	case mode == "":
		pref += 0.5
	case mode == string(c.Type):
		pref++
	}
	if session := p.Preferences.SessionMinutes; session <= 0 || c.EstimatedMinutes <= session {
		pref++
	}
	f.preference = pref / 3

	f.history = 0.5
	if perf, ok := categoryPerf[c.Category]; ok {
		f.history = 1 - perf/100
		f.hasHistory = true
	}
	if perf, ok := contentPerf[c.ID]; ok && perf >= 90 {
		f.history *= 0.5
	}
	f.history = core.Clamp01(f.history)
	return f
}

func (s *Content) reasons(rctx *core.RecommendContext, c *core.TrainingContent, w ContentWeights, f contentFactors) []string {
	type contrib struct {
		v      float64
		reason string
	}
	area := c.Category
	if a, ok := touches(c, rctx.Profile.Weaknesses); ok {
		area = a
	}
	all := []contrib{
		{w.SkillMatch * f.skillMatch, fmt.Sprintf("targets your %s skills", area)},
		{w.DifficultyFit * f.difficultyFit, fmt.Sprintf("difficulty %d matches your level", c.ClampedDifficulty())},
		{w.Preference * f.preference, "fits your training preferences"},
		{w.History * f.history, fmt.Sprintf("room to improve on %s content", c.Category)},
	}
	best, second := -1, -1
	for i := range all {
		switch {
		case best < 0 || all[i].v > all[best].v:
			second, best = best, i
		case second < 0 || all[i].v > all[second].v:
			second = i
		}
	}
	out := []string{all[best].reason}
	if second >= 0 && all[second].v > 0 && math.Abs(all[best].v-all[second].v) < 0.1 {
		out = append(out, all[second].reason)
	}
	return out
}
