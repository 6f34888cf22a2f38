package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/model"
)

// SequenceConfig 是序列策略的参数。
type SequenceConfig struct {
	Dim            int    `koanf:"dim"`
	SequenceLength int    `koanf:"sequence_length"`
	Seed           uint64 `koanf:"seed"`
	Layers         []int  `koanf:"layers"`
}

// Sequence 是基于最近训练序列的深度策略（DEEP_LEARNING）。
//
// 用户最近 SequenceLength 次交互经嵌入表映射为向量，按表现分缩放，
// 由 model.SequenceScorer 结合用户嵌入与候选嵌入输出分数。
// 单个候选打分失败或 panic 时给出中性分 0.5，不影响其他候选。
type Sequence struct {
	Embeddings     *model.EmbeddingTable
	Scorer         model.SequenceScorer
	SequenceLength int
	Logger         zerolog.Logger
}

const (
	embedUser     = "user"
	embedContent  = "content"
	embedCategory = "category"
	embedSkill    = "skill"

	neutralScore = 0.5
	extraDim     = 3
)

// NewSequence 按配置创建嵌入表和注意力打分模型。
func NewSequence(cfg SequenceConfig, logger zerolog.Logger) *Sequence {
	if cfg.Dim <= 0 {
		cfg.Dim = 16
	}
	if cfg.SequenceLength <= 0 {
		cfg.SequenceLength = 10
	}
	seed := cfg.Seed
	table := model.NewEmbeddingTable(cfg.Dim, seed)
	if seed == 0 {
		seed = 1
	}
	return &Sequence{
		Embeddings:     table,
		Scorer:         model.NewAttentionScorer(cfg.Dim, extraDim, cfg.Layers, seed),
		SequenceLength: cfg.SequenceLength,
		Logger:         logger,
	}
}

func (s *Sequence) Name() string              { return "strategy.sequence" }
func (s *Sequence) Algorithm() core.Algorithm { return core.AlgorithmDeepLearning }

func (s *Sequence) Recommend(
	ctx context.Context,
	rctx *core.RecommendContext,
	candidates []*core.TrainingContent,
) ([]*core.Item, error) {
	if rctx.Profile == nil {
		return nil, missingProfile(s.Name())
	}
	seqLen := s.SequenceLength
	if seqLen <= 0 {
		seqLen = 10
	}

	recent := rctx.Behavior.RecentSequence(seqLen)
	seq := make([][]float64, len(recent))
	var perfSum float64
	for i, in := range recent {
		seq[i] = s.interactionVector(in)
		perfSum += in.PerformanceScore
	}
	avgPerf := 0.5
	if len(recent) > 0 {
		avgPerf = perfSum / float64(len(recent)) / 100
	}
	user := s.Embeddings.Get(embedUser, rctx.UserID)
	level := float64(rctx.Level()) / 100
	coverage := math.Min(1, float64(len(recent))/float64(seqLen))

	out := make([]*core.Item, 0, len(candidates))
	for _, c := range eligible(rctx, candidates) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := model.SequenceInput{
			User:      user,
			Sequence:  seq,
			Candidate: s.contentVector(c),
			Extra:     []float64{level, avgPerf, float64(c.ClampedDifficulty()) / 10},
		}

		it := core.NewContentItem(c, s.Algorithm())
		res, ok := s.safeScore(rctx.UserID, c.ID, in)
		if ok {
			it.Score = res.Score
			it.Confidence = 0.3 + 0.5*coverage
			it.SetScore("attention_peak", maxOf(res.Attention))
			if len(recent) > 0 {
				it.AddReason(fmt.Sprintf("follows the direction of your last %d sessions", len(recent)))
			} else {
				it.AddReason("model estimate for your skill profile")
			}
		} else {
			it.Score = neutralScore
			it.Confidence = 0.2
			it.AddReason("neutral estimate")
		}
		it.ExpectedImprovement = it.Score * skillGap(rctx.Profile, c) * 8
		out = append(out, it.Clamp())
	}
	sortByScore(out)
	return out, nil
}

// safeScore 调用打分模型，出错或 panic 时返回 ok=false。
func (s *Sequence) safeScore(userID, contentID string, in model.SequenceInput) (res model.ScoreResult, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			s.Logger.Warn().Str("user_id", userID).Str("content_id", contentID).
				Interface("panic", p).Msg("sequence scorer panicked, using neutral score")
			ok = false
		}
	}()
	res, err := s.Scorer.Score(in)
	if err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Str("content_id", contentID).
			Msg("sequence scorer failed, using neutral score")
		return model.ScoreResult{}, false
	}
	return res, true
}

func (s *Sequence) contentVector(c *core.TrainingContent) []float64 {
	return s.Embeddings.Get(embedContent, c.ID)
}

// interactionVector 取内容嵌入（无内容 ID 时退化为分类嵌入），按表现分缩放到 [0.5, 1]。
func (s *Sequence) interactionVector(in core.Interaction) []float64 {
	var base []float64
	if in.ContentID != "" {
		base = s.Embeddings.Get(embedContent, in.ContentID)
	} else {
		base = s.Embeddings.Get(embedCategory, in.Category)
	}
	scale := 0.5 + core.Clamp01(in.PerformanceScore/100)/2
	out := make([]float64, len(base))
	for i, v := range base {
		out[i] = v * scale
	}
	return out
}

// UpdateUserModel 用技能画像与最近序列重算用户嵌入。
func (s *Sequence) UpdateUserModel(ctx context.Context, profile *core.UserSkillProfile, behavior *core.UserBehaviorData) error {
	if profile == nil {
		return missingProfile(s.Name())
	}
	dim := s.Embeddings.Dim()
	vec := make([]float64, dim)
	for _, k := range profile.SkillKeys() {
		w := profile.Skill(k) / 100
		for i, v := range s.Embeddings.Get(embedSkill, k) {
			vec[i] += w * v
		}
	}
	recent := behavior.RecentSequence(s.SequenceLength)
	for _, in := range recent {
		for i, v := range s.interactionVector(in) {
			vec[i] += v / float64(len(recent))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	s.Embeddings.Refresh(embedUser, profile.UserID, vec)
	return nil
}

func maxOf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}
