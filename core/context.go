package core

import (
	"time"

	"github.com/pokeriq/trainrec/pkg/utils"
)

// RecommendContext 承载一次请求的用户数据，贯穿策略与后处理。
//
// 构造后只读，可以被多个策略并发读取；Labels 与 Params 只应在
// 进入并发阶段之前写入。
type RecommendContext struct {
	UserID  string
	Request *Request

	Profile  *UserSkillProfile
	Behavior *UserBehaviorData

	// History 是用户看过的内容及最后一次观看时间，用于新颖度
	History map[string]time.Time

	ExperimentGroup string

	// Labels 是用户级标签，例如新用户、高手
	Labels utils.Labels

	// Params 请求级参数
	Params map[string]any

	exclude map[string]struct{}
}

// NewRecommendContext 构建上下文并预先计算排除集合。
func NewRecommendContext(req *Request, profile *UserSkillProfile, behavior *UserBehaviorData, history []HistoryEntry) *RecommendContext {
	rctx := &RecommendContext{
		Request:  req,
		Profile:  profile,
		Behavior: behavior,
		History:  make(map[string]time.Time, len(history)),
		Params:   make(map[string]any),
		exclude:  make(map[string]struct{}),
	}
	if req != nil {
		rctx.UserID = req.UserID
		for _, id := range req.Context.Exclude {
			rctx.exclude[id] = struct{}{}
		}
	}
	for _, h := range history {
		if t, ok := rctx.History[h.ContentID]; !ok || h.Timestamp.After(t) {
			rctx.History[h.ContentID] = h.Timestamp
		}
	}
	return rctx
}

// IsExcluded 判断内容是否在请求的排除列表里。
func (rctx *RecommendContext) IsExcluded(contentID string) bool {
	_, ok := rctx.exclude[contentID]
	return ok
}

// Seen 判断用户是否看过某条内容。
func (rctx *RecommendContext) Seen(contentID string) bool {
	_, ok := rctx.History[contentID]
	return ok
}

// Level 返回用户等级，画像缺失时为 1。
func (rctx *RecommendContext) Level() int {
	return rctx.Profile.ClampedLevel()
}

// TargetSkills 返回请求里的目标技能。
func (rctx *RecommendContext) TargetSkills() []string {
	if rctx.Request == nil {
		return nil
	}
	return rctx.Request.Context.TargetSkills
}

// Limit 返回请求的条数上限。
func (rctx *RecommendContext) Limit() int {
	if rctx.Request == nil {
		return 0
	}
	return rctx.Request.Limit
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	rctx.Labels = rctx.Labels.Put(key, lbl)
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
