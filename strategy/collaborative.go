package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pokeriq/trainrec/core"
)

// Neighbor 是候选相似用户。
type Neighbor struct {
	UserID string
	Level  int
	Skills map[string]float64
	// Performance 是该用户在各内容上的平均表现分 0-100
	Performance map[string]float64
}

// NeighborStore 提供协同过滤需要的其他用户数据。
type NeighborStore interface {
	// GetNeighbors 返回候选相似用户，结果不应包含 userID 本身
	GetNeighbors(ctx context.Context, userID string, limit int) ([]Neighbor, error)
}

// Collaborative 是基于用户的协同过滤策略（User-CF）。
//
// 核心思想："技能画像相近、练过同样内容的玩家，在同一内容上的表现可以互相参考"
//
// 算法流程：
//  1. 用户 → 技能向量 + 练习过的内容集合
//  2. 相似度 = 技能相似度与内容重合度的加权，按等级差做衰减
//  3. 取 TopK 相似用户
//  4. 候选分数 = 相似用户在该内容上表现分的相似度加权平均
//
// 交互次数不足 MinInteractions 的用户（冷启动）返回空结果。
type Collaborative struct {
	Store NeighborStore

	// TopKNeighbors 参与打分的相似用户数
	TopKNeighbors int

	// NeighborPool 从 Store 拉取的候选用户数
	NeighborPool int

	// MinInteractions 用户至少需要多少次交互才参与协同过滤
	MinInteractions int

	// MinSimilarity 相似度阈值
	MinSimilarity float64

	// SimilarityMetric 技能相似度度量：cosine / pearson
	SimilarityMetric string

	// SkillWeight 技能相似度在总相似度中的权重，其余为内容重合度
	SkillWeight float64
}

func (s *Collaborative) Name() string              { return "strategy.collaborative" }
func (s *Collaborative) Algorithm() core.Algorithm { return core.AlgorithmCollaborative }

func (s *Collaborative) defaults() (topK, pool, minInter int, minSim, skillW float64) {
	topK, pool, minInter, minSim, skillW = s.TopKNeighbors, s.NeighborPool, s.MinInteractions, s.MinSimilarity, s.SkillWeight
	if topK <= 0 {
		topK = 20
	}
	if pool <= 0 {
		pool = 200
	}
	if minInter <= 0 {
		minInter = 1
	}
	if minSim <= 0 {
		minSim = 0.1
	}
	if skillW <= 0 || skillW > 1 {
		skillW = 0.7
	}
	return
}

type scoredNeighbor struct {
	Neighbor
	similarity float64
}

func (s *Collaborative) Recommend(
	ctx context.Context,
	rctx *core.RecommendContext,
	candidates []*core.TrainingContent,
) ([]*core.Item, error) {
	if s.Store == nil {
		return nil, nil
	}
	if rctx.Profile == nil {
		return nil, missingProfile(s.Name())
	}
	topK, pool, minInter, minSim, skillW := s.defaults()
	if rctx.Behavior.InteractionCount() < minInter {
		return nil, nil
	}

	neighbors, err := s.Store.GetNeighbors(ctx, rctx.UserID, pool)
	if err != nil {
		return nil, err
	}

	practiced := make(map[string]struct{})
	for _, in := range rctx.Behavior.Interactions {
		if in.ContentID != "" {
			practiced[in.ContentID] = struct{}{}
		}
	}

	similar := make([]scoredNeighbor, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.UserID == rctx.UserID {
			continue
		}
		sim := s.similarity(rctx.Profile, practiced, nb, skillW)
		if sim >= minSim {
			similar = append(similar, scoredNeighbor{Neighbor: nb, similarity: sim})
		}
	}
	sort.Slice(similar, func(i, j int) bool {
		if similar[i].similarity != similar[j].similarity {
			return similar[i].similarity > similar[j].similarity
		}
		return similar[i].UserID < similar[j].UserID
	})
	if len(similar) > topK {
		similar = similar[:topK]
	}
	if len(similar) == 0 {
		return nil, nil
	}

	out := make([]*core.Item, 0)
	for _, c := range eligible(rctx, candidates) {
		var num, den float64
		support := 0
		for _, nb := range similar {
			perf, ok := nb.Performance[c.ID]
			if !ok {
				continue
			}
			num += nb.similarity * perf / 100
			den += nb.similarity
			support++
		}
		if support == 0 || den == 0 {
			continue
		}

		avgSim := den / float64(support)
		it := core.NewContentItem(c, s.Algorithm())
		it.Score = num / den
		it.Confidence = avgSim * math.Min(1, float64(support)/3)
		it.ExpectedImprovement = it.Score * skillGap(rctx.Profile, c) * 10
		it.SetScore("neighbor_similarity", avgSim)
		it.SetScore("neighbor_support", float64(support))
		it.AddReason(fmt.Sprintf("%d players with a similar skill profile averaged %.0f%% on this content", support, it.Score*100))
		out = append(out, it.Clamp())
	}
	sortByScore(out)
	return out, nil
}

func (s *Collaborative) similarity(p *core.UserSkillProfile, practiced map[string]struct{}, nb Neighbor, skillW float64) float64 {
	keys := unionKeys(p.Skills, nb.Skills)
	a := p.SkillVector(keys)
	b := make([]float64, len(keys))
	for i, k := range keys {
		b[i] = nb.Skills[k] / 100
	}

	var skillSim float64
	switch s.SimilarityMetric {
	case "pearson":
		skillSim = math.Max(0, pearsonCorrelation(a, b))
	default:
		skillSim = cosineSimilarity(a, b)
	}

	theirs := make(map[string]struct{}, len(nb.Performance))
	for id := range nb.Performance {
		theirs[id] = struct{}{}
	}
	overlap := jaccardSimilarity(practiced, theirs)

	sim := skillW*skillSim + (1-skillW)*overlap
	levelGap := math.Min(100, math.Abs(float64(p.ClampedLevel()-nb.Level)))
	return sim * (1 - levelGap/200)
}
