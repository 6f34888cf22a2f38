package strategy

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pokeriq/trainrec/core"
)

// PathStep 是学习路径中的一步，完成其全部内容即视为达成。
type PathStep struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	ContentIDs    []string `yaml:"content_ids"`
	Prerequisites []string `yaml:"prerequisites"` // 前置步骤 ID
}

// LearningPath 是一条有序的学习路径。
type LearningPath struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	FocusAreas []string   `yaml:"focus_areas"`
	MinLevel   int        `yaml:"min_level"`
	MaxLevel   int        `yaml:"max_level"`
	Steps      []PathStep `yaml:"steps"`
}

func (lp *LearningPath) fits(level int) bool {
	if lp.MinLevel > 0 && level < lp.MinLevel {
		return false
	}
	if lp.MaxLevel > 0 && level > lp.MaxLevel {
		return false
	}
	return len(lp.Steps) > 0
}

// PathStore 提供学习路径定义。
type PathStore interface {
	Paths(ctx context.Context) ([]*LearningPath, error)
}

// StaticPaths 是内存中的路径集合。
type StaticPaths []*LearningPath

func (s StaticPaths) Paths(context.Context) ([]*LearningPath, error) { return s, nil }

// ParsePathsYAML 解析路径定义：
//
//	paths:
//	  - id: preflop-foundations
//	    steps:
//	      - id: ranges
//	        content_ids: [c1, c2]
func ParsePathsYAML(data []byte) (StaticPaths, error) {
	var doc struct {
		Paths []*LearningPath `yaml:"paths"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse paths: %w", err)
	}
	for _, p := range doc.Paths {
		if p.ID == "" {
			return nil, fmt.Errorf("parse paths: path without id")
		}
	}
	return StaticPaths(doc.Paths), nil
}

// LoadPathsFile 从 YAML 文件加载路径。
func LoadPathsFile(path string) (StaticPaths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}
	return ParsePathsYAML(data)
}

// Path 是学习路径策略（LEARNING_PATH）。
//
// 选出与用户关注领域、弱项、目标技能最相关的路径，定位第一个未达成的步骤，
// 当前步骤内容得分最高，越往后衰减越多；已达成步骤作为复习低分，
// 前置未满足的步骤给予更低分。不在路径上的候选不打分。
type Path struct {
	Store PathStore

	// CompletionThreshold 完成率达到该值（0-100）视为完成
	CompletionThreshold float64

	// Decay 每远离当前步骤一步扣减的分数
	Decay float64

	ReviewScore  float64
	BlockedScore float64
}

func (s *Path) Name() string              { return "strategy.path" }
func (s *Path) Algorithm() core.Algorithm { return core.AlgorithmLearningPath }

func (s *Path) params() (threshold, decay, review, blocked float64) {
	threshold, decay, review, blocked = s.CompletionThreshold, s.Decay, s.ReviewScore, s.BlockedScore
	if threshold <= 0 {
		threshold = 80
	}
	if decay <= 0 {
		decay = 0.15
	}
	if review <= 0 {
		review = 0.2
	}
	if blocked <= 0 {
		blocked = 0.1
	}
	return
}

// pathState 是用户在某条路径上的进度。
type pathState struct {
	path     *LearningPath
	attained map[string]bool // step id -> 是否达成
	current  int             // 第一个未达成步骤的下标，全部达成时为 len(steps)
	done     int
}

func (s *Path) state(ctx context.Context, rctx *core.RecommendContext) (*pathState, error) {
	if s.Store == nil {
		return nil, nil
	}
	paths, err := s.Store.Paths(ctx)
	if err != nil {
		return nil, err
	}
	lp := selectPath(rctx, paths)
	if lp == nil {
		return nil, nil
	}

	threshold, _, _, _ := s.params()
	completion := rctx.Behavior.ContentCompletion()
	st := &pathState{path: lp, attained: make(map[string]bool, len(lp.Steps)), current: -1}
	for i, step := range lp.Steps {
		ok := len(step.ContentIDs) > 0
		for _, id := range step.ContentIDs {
			if completion[id] < threshold {
				ok = false
				break
			}
		}
		st.attained[step.ID] = ok
		if ok {
			st.done++
		} else if st.current < 0 {
			st.current = i
		}
	}
	if st.current < 0 {
		st.current = len(lp.Steps)
	}
	return st, nil
}

// selectPath 选相关度最高的路径，同分按 ID。
func selectPath(rctx *core.RecommendContext, paths []*LearningPath) *LearningPath {
	level := rctx.Level()
	var best *LearningPath
	bestScore := -1
	sorted := append([]*LearningPath(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, lp := range sorted {
		if lp == nil || !lp.fits(level) {
			continue
		}
		score := 0
		for _, area := range lp.FocusAreas {
			if rctx.Profile.IsFocus(area) {
				score += 2
			}
			if rctx.Profile.IsWeakness(area) {
				score += 2
			}
			for _, t := range rctx.TargetSkills() {
				if t == area {
					score += 3
				}
			}
		}
		if score > bestScore {
			best, bestScore = lp, score
		}
	}
	return best
}

func (s *Path) Recommend(
	ctx context.Context,
	rctx *core.RecommendContext,
	candidates []*core.TrainingContent,
) ([]*core.Item, error) {
	st, err := s.state(ctx, rctx)
	if err != nil || st == nil {
		return nil, err
	}
	_, decay, review, blocked := s.params()

	stepOf := make(map[string]int)
	for i, step := range st.path.Steps {
		for _, id := range step.ContentIDs {
			if _, ok := stepOf[id]; !ok {
				stepOf[id] = i
			}
		}
	}
	total := len(st.path.Steps)

	out := make([]*core.Item, 0)
	for _, c := range eligible(rctx, candidates) {
		idx, ok := stepOf[c.ID]
		if !ok {
			continue
		}
		step := st.path.Steps[idx]
		it := core.NewContentItem(c, s.Algorithm())
		it.AdaptiveLevel = rctx.Level()
		it.SetScore("path_step", float64(idx+1))

		switch missing := st.missingPrerequisite(step); {
		case st.attained[step.ID]:
			it.Score = review
			it.Confidence = 0.5
			it.AddReason(fmt.Sprintf("review of completed step %q in %s", step.Name, st.path.Name))
		case missing != "":
			it.Score = blocked
			it.Confidence = 0.4
			it.AddReason(fmt.Sprintf("unlocks after step %q", missing))
		default:
			dist := idx - st.current
			if dist < 0 {
				dist = 0
			}
			it.Score = math.Max(0.3, 1-decay*float64(dist))
			it.Confidence = 0.6
			if dist == 0 {
				it.Confidence = 0.8
			}
			it.AddReason(fmt.Sprintf("step %d of %d in %s", idx+1, total, st.path.Name))
		}
		it.ExpectedImprovement = it.Score * 8
		out = append(out, it.Clamp())
	}
	sortByScore(out)
	return out, nil
}

func (st *pathState) missingPrerequisite(step PathStep) string {
	for _, pre := range step.Prerequisites {
		if !st.attained[pre] {
			return pre
		}
	}
	return ""
}

// Progress 返回用户在当前路径上的进度，没有合适路径时返回 nil。
func (s *Path) Progress(ctx context.Context, rctx *core.RecommendContext) (*core.PathProgress, error) {
	st, err := s.state(ctx, rctx)
	if err != nil || st == nil {
		return nil, err
	}
	total := len(st.path.Steps)
	current := st.current + 1
	if current > total {
		current = total
	}
	return &core.PathProgress{
		PathID:          st.path.ID,
		PathName:        st.path.Name,
		CurrentStep:     current,
		TotalSteps:      total,
		PercentComplete: math.Round(float64(st.done)/float64(total)*1000) / 10,
	}, nil
}

// Health 路径加载失败为 unhealthy，没有任何路径为 degraded。
func (s *Path) Health(ctx context.Context) core.HealthStatus {
	if s.Store == nil {
		return core.StatusDegraded
	}
	paths, err := s.Store.Paths(ctx)
	switch {
	case err != nil:
		return core.StatusUnhealthy
	case len(paths) == 0:
		return core.StatusDegraded
	}
	return core.StatusHealthy
}
