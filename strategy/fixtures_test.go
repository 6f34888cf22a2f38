package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/store"
)

func newKV() *store.MemoryStore {
	return store.NewMemoryStore(store.WithCleanupInterval(0))
}

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testProfile(level int) *core.UserSkillProfile {
	p := core.NewUserSkillProfile("u1")
	p.Level = level
	p.Skills = map[string]float64{
		core.SkillPreflop:    70,
		core.SkillPostflop:   30,
		core.SkillPsychology: 50,
	}
	p.Weaknesses = []string{core.SkillPostflop}
	p.FocusAreas = []string{core.SkillPostflop}
	return p
}

func testCatalog() []*core.TrainingContent {
	return []*core.TrainingContent{
		{ID: "c1", Type: core.ContentDrill, Category: core.SkillPreflop, Difficulty: 2, SkillAreas: []string{core.SkillPreflop}, EstimatedMinutes: 10},
		{ID: "c2", Type: core.ContentScenario, Category: core.SkillPostflop, Difficulty: 3, SkillAreas: []string{core.SkillPostflop}, EstimatedMinutes: 15},
		{ID: "c3", Type: core.ContentCourse, Category: core.SkillPsychology, Difficulty: 8, SkillAreas: []string{core.SkillPsychology}, EstimatedMinutes: 40},
		{ID: "c4", Type: core.ContentScenario, Category: core.SkillPostflop, Difficulty: 5, SkillAreas: []string{core.SkillPostflop}, EstimatedMinutes: 20},
	}
}

func testBehavior(n int) *core.UserBehaviorData {
	b := &core.UserBehaviorData{UserID: "u1"}
	for i := 0; i < n; i++ {
		b.Interactions = append(b.Interactions, core.Interaction{
			SessionID:        fmt.Sprintf("s%d", i),
			ContentID:        fmt.Sprintf("c%d", i%2+1),
			Category:         []string{core.SkillPreflop, core.SkillPostflop}[i%2],
			PerformanceScore: 40 + float64(i),
			CompletionRate:   100,
			Timestamp:        baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return b
}

func testContext(profile *core.UserSkillProfile, behavior *core.UserBehaviorData, exclude ...string) *core.RecommendContext {
	req := &core.Request{UserID: "u1", Algorithm: core.AlgorithmHybrid, Limit: 10, Context: core.RequestContext{Exclude: exclude}}
	return core.NewRecommendContext(req, profile, behavior, nil)
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

type neighborStub struct {
	neighbors []Neighbor
	err       error
}

func (n *neighborStub) GetNeighbors(context.Context, string, int) ([]Neighbor, error) {
	return n.neighbors, n.err
}

type stubStrategy struct {
	name  string
	alg   core.Algorithm
	items []*core.Item
	err   error
	delay time.Duration
	panic bool
}

func (s *stubStrategy) Name() string              { return s.name }
func (s *stubStrategy) Algorithm() core.Algorithm { return s.alg }

func (s *stubStrategy) Recommend(ctx context.Context, _ *core.RecommendContext, _ []*core.TrainingContent) ([]*core.Item, error) {
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return core.CloneItems(s.items), s.err
}
