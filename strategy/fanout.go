package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pkg/utils"
)

// Result 是单个策略的执行结果。Err 不为空时 Items 为空。
type Result struct {
	Strategy  string
	Algorithm core.Algorithm
	Items     []*core.Item
	Err       error
	Latency   time.Duration
}

// Fanout 并发执行多个策略，单个策略失败、超时或 panic 不影响其他策略。
type Fanout struct {
	Timeout       time.Duration // 每个策略的超时时间，0 表示只受上层 ctx 约束
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	Logger        zerolog.Logger

	// OnResult 在每个策略结束后调用，用于指标
	OnResult func(Result)
}

// Dispatch 执行策略并按传入顺序返回结果。
func (f *Fanout) Dispatch(
	ctx context.Context,
	rctx *core.RecommendContext,
	strategies []Strategy,
	candidates []*core.TrainingContent,
) []Result {
	results := make([]Result, len(strategies))
	if len(strategies) == 0 {
		return results
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c != nil {
			known[c.ID] = struct{}{}
		}
	}

	userID := ""
	if rctx != nil {
		userID = rctx.UserID
	}

	var eg errgroup.Group
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}

	for i, s := range strategies {
		eg.Go(func() error {
			start := time.Now()
			items, err := f.run(ctx, rctx, s, candidates)
			if err == nil {
				items, err = sanitize(rctx, s, items, known)
			}
			res := Result{
				Strategy:  s.Name(),
				Algorithm: s.Algorithm(),
				Err:       err,
				Latency:   time.Since(start),
			}
			if err == nil {
				res.Items = items
			} else {
				f.Logger.Error().Err(err).
					Str("strategy", s.Name()).
					Str("user_id", userID).
					Dur("latency", res.Latency).
					Msg("strategy failed, excluded from fusion")
			}
			results[i] = res
			if f.OnResult != nil {
				f.OnResult(res)
			}
			// 失败不中断其他策略
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (f *Fanout) run(ctx context.Context, rctx *core.RecommendContext, s Strategy, candidates []*core.TrainingContent) (items []*core.Item, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), p)
		}
	}()

	runCtx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	items, err = s.Recommend(runCtx, rctx, candidates)
	if err != nil {
		return nil, err
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("strategy %s: %w", s.Name(), ctxErr)
	}
	return items, nil
}

// sanitize 校验策略输出：丢弃未知、重复、被排除的内容，分数收敛到 [0, 1]。
// 出现 NaN 分数视为策略输出无效。
func sanitize(rctx *core.RecommendContext, s Strategy, items []*core.Item, known map[string]struct{}) ([]*core.Item, error) {
	seen := make(map[string]struct{}, len(items))
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if math.IsNaN(it.Score) || math.IsNaN(it.Confidence) {
			return nil, fmt.Errorf("strategy %s produced invalid score for %s", s.Name(), it.ID)
		}
		if _, ok := known[it.ID]; !ok {
			continue
		}
		if rctx != nil && rctx.IsExcluded(it.ID) {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		if it.Algorithm == "" {
			it.Algorithm = s.Algorithm()
		}
		it.Clamp()
		it.PutLabel("strategy", utils.NewLabel(s.Name(), "strategy"))
		out = append(out, it)
	}
	return out, nil
}
