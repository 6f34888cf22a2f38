package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/metrics"
	"github.com/pokeriq/trainrec/pipeline"
)

// nodeHook 记录后处理节点的耗时与输出数量。
type nodeHook struct {
	logger zerolog.Logger
}

func (h *nodeHook) BeforeNode(context.Context, *core.RecommendContext, pipeline.Node, []*core.Item) {}

func (h *nodeHook) AfterNode(_ context.Context, rctx *core.RecommendContext, node pipeline.Node, items []*core.Item, elapsed time.Duration, err error) {
	metrics.RecordNode(node.Name(), elapsed)
	if e := h.logger.Debug(); e.Enabled() {
		userID := ""
		if rctx != nil {
			userID = rctx.UserID
		}
		e.Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Str("user_id", userID).
			Int("items", len(items)).
			Dur("elapsed", elapsed).
			AnErr("error", err).
			Msg("postprocess node done")
	}
}
