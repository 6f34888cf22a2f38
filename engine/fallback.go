package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
)

// fallbackFetchTimeout 降级路径上每次数据读取的上限。
const fallbackFetchTimeout = 200 * time.Millisecond

const reasonFallback = "matched to your current level"

// fallback 只根据用户等级排出一个小列表。level 为 0 时尽力再读一次画像，
// 读不到按 1 级处理。
func (e *Engine) fallback(ctx context.Context, req *core.Request, level int, cause error, log zerolog.Logger) *core.Response {
	log.Warn().Err(cause).Msg("recommendation failed, serving fallback")

	// 调用方可能已经取消，降级仍需要完成
	ctx = context.WithoutCancel(ctx)
	if level <= 0 {
		level = e.fallbackLevel(ctx, req.UserID)
	}

	catalog := e.fallbackCatalog
	if len(catalog) == 0 {
		fctx, cancel := context.WithTimeout(ctx, fallbackFetchTimeout)
		contents, err := e.data.GetCandidateContent(fctx, core.ContentQuery{UserID: req.UserID, Limit: e.cfg.MaxCandidates})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("fallback catalog unavailable, serving empty list")
		}
		catalog = contents
	}

	limit := e.cfg.FallbackLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	items, total := rankByLevel(req, catalog, level, e.cfg.FallbackMaxConfidence)
	if len(items) > limit {
		items = items[:limit]
	}
	for i, it := range items {
		it.FinalRank = i + 1
	}

	return &core.Response{
		UserID: req.UserID,
		Items:  items,
		Metadata: core.ResponseMetadata{
			RequestID:       uuid.NewString(),
			Algorithm:       core.AlgorithmFallback,
			TotalCandidates: total,
		},
		Timestamp: e.now(),
	}
}

func (e *Engine) fallbackLevel(ctx context.Context, userID string) int {
	if userID == "" {
		return 1
	}
	fctx, cancel := context.WithTimeout(ctx, fallbackFetchTimeout)
	defer cancel()
	p, err := e.data.GetUserProfile(fctx, userID)
	if err != nil || p == nil {
		return 1
	}
	return p.ClampedLevel()
}

// rankByLevel 按内容难度与目标难度的距离打分，分数与置信度都不超过 maxConfidence。
func rankByLevel(req *core.Request, catalog []*core.TrainingContent, level int, maxConfidence float64) ([]*core.Item, int) {
	target := core.TargetDifficulty(level)
	excluded := make(map[string]struct{}, len(req.Context.Exclude))
	for _, id := range req.Context.Exclude {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(catalog))
	items := make([]*core.Item, 0, len(catalog))
	for _, c := range catalog {
		if c == nil || c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		if c.Meta.MinLevel > 0 && level < c.Meta.MinLevel {
			continue
		}
		if c.Meta.MaxLevel > 0 && level > c.Meta.MaxLevel {
			continue
		}

		fit := 1 - math.Abs(float64(c.ClampedDifficulty()-target))/10
		it := core.NewContentItem(c, core.AlgorithmFallback)
		it.Score = core.Clamp01(fit * maxConfidence)
		it.Confidence = it.Score
		it.AdaptiveLevel = target
		it.SetScore("difficulty_fit", fit)
		it.AddReason(reasonFallback)
		items = append(items, it)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items, len(items)
}
