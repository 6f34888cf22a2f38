package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/metrics"
	"github.com/pokeriq/trainrec/pkg/utils"
	"github.com/pokeriq/trainrec/rank"
	"github.com/pokeriq/trainrec/strategy"
)

// outcome 是一次计算的结果。失败时 level 供降级使用，0 表示画像尚未拿到。
type outcome struct {
	resp  *core.Response
	level int
	err   error
}

// GetRecommendations 返回推荐结果，永远不返回错误。
func (e *Engine) GetRecommendations(ctx context.Context, req *core.Request) *core.Response {
	start := e.now()
	req = e.normalize(req)
	log := e.requestLogger(req)

	if err := e.validate.Struct(req); err != nil {
		err = core.WrapDomainError(core.ModuleRequest, core.ErrorCodeInvalidInput, "invalid request", err)
		return e.finish(ctx, req, e.fallback(ctx, req, 0, err, log), start, metrics.OutcomeFallback)
	}

	if resp, ok := e.lookupCache(ctx, req, log); ok {
		return e.finish(ctx, req, resp, start, metrics.OutcomeCacheHit)
	}

	ch := e.group.DoChan(flightKey(req), func() (any, error) {
		return e.compute(req, log), nil
	})

	timer := time.NewTimer(e.cfg.RequestTimeout)
	defer timer.Stop()

	var out outcome
	select {
	case res := <-ch:
		out = res.Val.(outcome)
	case <-timer.C:
		out = outcome{err: fmt.Errorf("request timed out after %s", e.cfg.RequestTimeout)}
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		return e.finish(ctx, req, e.fallback(ctx, req, out.level, out.err, log), start, metrics.OutcomeFallback)
	}
	resp := out.resp.Clone()
	resp.Metadata.LatencyMS = e.now().Sub(start).Milliseconds()
	return e.finish(ctx, req, resp, start, metrics.OutcomeSuccess)
}

// normalize 拷贝请求并补全默认值。
func (e *Engine) normalize(req *core.Request) *core.Request {
	if req == nil {
		req = &core.Request{}
	}
	req = req.Clone()
	if req.Algorithm == "" {
		req.Algorithm = core.AlgorithmHybrid
	}
	if req.Limit == 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	return req
}

func (e *Engine) requestLogger(req *core.Request) zerolog.Logger {
	return e.logger.With().
		Str("user_id", req.UserID).
		Str("algorithm", string(req.Algorithm)).
		Logger()
}

// cacheDepth 是写入缓存的条数，与请求 Limit 的上限一致。
const cacheDepth = 100

// flightKey 只合并上下文完全一致的请求。
func flightKey(req *core.Request) string {
	var b strings.Builder
	b.WriteString(req.UserID)
	b.WriteByte('|')
	b.WriteString(string(req.Algorithm))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Limit))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Context.AvailableMinutes))
	b.WriteByte('|')
	exclude := append([]string(nil), req.Context.Exclude...)
	sort.Strings(exclude)
	b.WriteString(strings.Join(exclude, ","))
	b.WriteByte('|')
	targets := append([]string(nil), req.Context.TargetSkills...)
	sort.Strings(targets)
	b.WriteString(strings.Join(targets, ","))
	return b.String()
}

// lookupCache 命中时返回拷贝，并按本次请求的排除列表与条数裁剪。
func (e *Engine) lookupCache(ctx context.Context, req *core.Request, log zerolog.Logger) (*core.Response, bool) {
	if e.cache == nil {
		return nil, false
	}
	cached, hit, err := e.cache.Get(ctx, req.UserID, req.Algorithm)
	metrics.RecordCache(hit, err)
	if err != nil {
		log.Warn().Err(err).Msg("cache lookup failed, computing")
		return nil, false
	}
	if !hit {
		return nil, false
	}

	resp := cached.Clone()
	resp.Metadata.CacheHit = true
	if len(req.Context.Exclude) > 0 {
		excluded := make(map[string]struct{}, len(req.Context.Exclude))
		for _, id := range req.Context.Exclude {
			excluded[id] = struct{}{}
		}
		kept := resp.Items[:0]
		for _, it := range resp.Items {
			if _, ok := excluded[it.ID]; !ok {
				kept = append(kept, it)
			}
		}
		resp.Items = kept
	}
	if len(resp.Items) > req.Limit {
		resp.Items = resp.Items[:req.Limit]
	}
	return resp, true
}

// compute 跑完整链路。与调用方的 ctx 解耦：合并后的请求共享同一次计算，
// 一个调用方取消不影响其他调用方。
func (e *Engine) compute(req *core.Request, log zerolog.Logger) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = outcome{level: out.level, err: fmt.Errorf("recommendation panicked: %v", p)}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	requestID := uuid.NewString()
	variant, inExperiment := e.experiments.AssignUserToExperiment(ctx, req.UserID)
	if !inExperiment {
		variant = ""
	}

	rctx, candidates, err := e.fetch(ctx, req, log)
	if err != nil {
		out.err = err
		return out
	}
	rctx.ExperimentGroup = variant
	out.level = rctx.Level()

	// 有缓存时按最大条数排好整表写入缓存，返回前再按本次 Limit 截断
	depth := req.Limit
	if e.cache != nil && depth < cacheDepth {
		depth = cacheDepth
		ranked := req.Clone()
		ranked.Limit = depth
		rctx.Request = ranked
	}
	segmentUser(rctx, e.weights)

	if e.filters != nil {
		var dropped map[string]int
		candidates, dropped = e.filters.Apply(ctx, rctx, candidates)
		metrics.RecordFiltered(dropped)
	}

	strategies, err := e.registry.Resolve(req.Algorithm)
	if err != nil {
		out.err = err
		return out
	}

	results := e.fanout.Dispatch(ctx, rctx, strategies, candidates)
	weights := e.resolveWeights(req.Algorithm, rctx)

	outputs := make([]rank.StrategyOutput, 0, len(results))
	used := make([]core.Algorithm, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if len(r.Items) == 0 {
			continue
		}
		outputs = append(outputs, rank.StrategyOutput{Algorithm: r.Algorithm, Items: r.Items, Weight: weights[r.Algorithm]})
		used = append(used, r.Algorithm)
	}
	if failed > 0 && failed == len(results) {
		out.err = core.NewDomainError(core.ModuleStrategy, core.ErrorCodeUnavailable, "all strategies failed")
		return out
	}

	fused := e.fusion.Fuse(outputs)
	items, err := e.post.Run(ctx, rctx, fused)
	if err != nil {
		out.err = fmt.Errorf("postprocess: %w", err)
		return out
	}
	if len(items) > depth {
		items = items[:depth]
	}

	resp := &core.Response{
		UserID: req.UserID,
		Items:  items,
		Metadata: core.ResponseMetadata{
			RequestID:       requestID,
			Algorithm:       req.Algorithm,
			AlgorithmsUsed:  used,
			TotalCandidates: len(fused),
			ExperimentGroup: variant,
			Weights:         weights.ToMap(),
		},
		PathProgress: e.progress(ctx, rctx, log),
		Timestamp:    e.now(),
	}

	if e.cache != nil {
		if _, err := e.cache.Set(ctx, resp, req.Algorithm); err != nil {
			log.Warn().Err(err).Msg("cache write failed")
		}
	}
	if len(resp.Items) > req.Limit {
		trimmed := *resp
		trimmed.Items = resp.Items[:req.Limit]
		resp = &trimmed
	}
	out.resp = resp
	return out
}

// fetch 并发拉取画像、行为、候选与历史。历史失败只影响新颖度，不触发降级。
func (e *Engine) fetch(ctx context.Context, req *core.Request, log zerolog.Logger) (*core.RecommendContext, []*core.TrainingContent, error) {
	var (
		profile    *core.UserSkillProfile
		behavior   *core.UserBehaviorData
		candidates []*core.TrainingContent
		history    []core.HistoryEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.data.GetUserProfile(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		b, err := e.data.GetUserBehavior(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("get behavior: %w", err)
		}
		behavior = b
		return nil
	})
	g.Go(func() error {
		c, err := e.data.GetCandidateContent(gctx, core.ContentQuery{UserID: req.UserID, Limit: e.cfg.MaxCandidates})
		if err != nil {
			return fmt.Errorf("get candidates: %w", err)
		}
		candidates = c
		return nil
	})
	g.Go(func() error {
		h, err := e.data.GetUserHistory(gctx, req.UserID)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("history unavailable, novelty treats everything as unseen")
			}
			return nil
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if profile == nil {
		return nil, nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeNotFound, "empty profile for "+req.UserID)
	}
	if behavior == nil {
		behavior = &core.UserBehaviorData{UserID: req.UserID}
	}
	return core.NewRecommendContext(req, profile, behavior, history), candidates, nil
}

// segmentUser 写入用户分层标签，用于日志与解释。
func segmentUser(rctx *core.RecommendContext, p *rank.WeightPolicy) {
	level := rctx.Level()
	switch {
	case level < p.NewUserLevel:
		rctx.PutLabel("segment", utils.NewLabel("new_user", "level"))
	case level > p.ExpertLevel:
		rctx.PutLabel("segment", utils.NewLabel("expert", "level"))
	default:
		rctx.PutLabel("segment", utils.NewLabel("regular", "level"))
	}
}

// resolveWeights HYBRID 使用权重策略；单策略请求权重为 1。
func (e *Engine) resolveWeights(alg core.Algorithm, rctx *core.RecommendContext) core.Weights {
	if alg != core.AlgorithmHybrid {
		return core.Weights{alg: 1}
	}
	return e.weights.Resolve(rctx.Level(), rctx.ExperimentGroup)
}

func (e *Engine) progress(ctx context.Context, rctx *core.RecommendContext, log zerolog.Logger) *core.PathProgress {
	s, ok := e.registry.Get(core.AlgorithmLearningPath)
	if !ok {
		return nil
	}
	reporter, ok := s.(strategy.ProgressReporter)
	if !ok {
		return nil
	}
	p, err := reporter.Progress(ctx, rctx)
	if err != nil {
		log.Warn().Err(err).Msg("learning path progress unavailable")
		return nil
	}
	return p
}

// finish 记录指标、热度与反馈事件，这些失败都不影响响应。
func (e *Engine) finish(ctx context.Context, req *core.Request, resp *core.Response, start time.Time, result string) *core.Response {
	metrics.RecordRecommendation(string(req.Algorithm), result, len(resp.Items), e.now().Sub(start))

	if e.trending != nil && !resp.IsFallback() && !resp.Metadata.CacheHit {
		if err := e.trending.Record(ctx, resp.Items); err != nil {
			e.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("trending record failed")
		}
	}
	if e.collector != nil {
		if err := e.collector.RecordRecommendation(ctx, resp, req); err != nil {
			e.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("feedback record failed")
		}
	}
	return resp
}
