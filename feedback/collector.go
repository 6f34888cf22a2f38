// Package feedback 记录推荐曝光与用户反馈。
//
// 记录是 fire-and-forget 的：Collector 出错只会被记录日志，不影响推荐请求。
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/pokeriq/trainrec/core"
)

// EventType 事件类型。
type EventType string

const (
	EventServed     EventType = "served"      // 推荐结果下发
	EventHelpful    EventType = "helpful"     // 用户认为有帮助
	EventNotHelpful EventType = "not_helpful" // 用户认为没有帮助
	EventCompleted  EventType = "completed"   // 用户完成了训练
)

// ParseOutcome 解析用户反馈，只接受 helpful / not_helpful / completed。
func ParseOutcome(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventHelpful, EventNotHelpful, EventCompleted:
		return t, nil
	}
	return "", core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, fmt.Sprintf("unknown feedback %q", s))
}

// Event 是一条反馈事件。
type Event struct {
	Type            EventType      `json:"type"`
	UserID          string         `json:"user_id"`
	ContentID       string         `json:"content_id"`
	RequestID       string         `json:"request_id,omitempty"`
	Algorithm       core.Algorithm `json:"algorithm,omitempty"`
	ExperimentGroup string         `json:"experiment_group,omitempty"`
	Position        int            `json:"position,omitempty"`
	Score           float64        `json:"score,omitempty"`
	Rating          int            `json:"rating,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Collector 收集推荐与反馈事件。
type Collector interface {
	// RecordRecommendation 记录一次下发的推荐结果
	RecordRecommendation(ctx context.Context, resp *core.Response, req *core.Request) error

	// RecordOutcome 记录用户对某条内容的反馈
	RecordOutcome(ctx context.Context, ev Event) error

	// Close 等待缓冲数据发送完成
	Close() error
}

// ServedEvents 把响应展开为逐条的 served 事件。
func ServedEvents(resp *core.Response, now time.Time) []Event {
	if resp == nil {
		return nil
	}
	events := make([]Event, 0, len(resp.Items))
	for i, it := range resp.Items {
		pos := it.FinalRank
		if pos == 0 {
			pos = i + 1
		}
		events = append(events, Event{
			Type:            EventServed,
			UserID:          resp.UserID,
			ContentID:       it.ID,
			RequestID:       resp.Metadata.RequestID,
			Algorithm:       resp.Metadata.Algorithm,
			ExperimentGroup: resp.Metadata.ExperimentGroup,
			Position:        pos,
			Score:           it.Score,
			Timestamp:       now,
		})
	}
	return events
}

// Key 是用户反馈在 KeyValueStore 中的 hash key，field 为内容 ID。
func Key(userID string) string {
	return "feedback:" + userID
}

// Multi 把事件依次写入多个 Collector，返回第一个错误。
type Multi []Collector

func (m Multi) RecordRecommendation(ctx context.Context, resp *core.Response, req *core.Request) error {
	var first error
	for _, c := range m {
		if err := c.RecordRecommendation(ctx, resp, req); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) RecordOutcome(ctx context.Context, ev Event) error {
	var first error
	for _, c := range m {
		if err := c.RecordOutcome(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Health 返回子 Collector 中最差的状态。
func (m Multi) Health(ctx context.Context) core.HealthStatus {
	status := core.StatusHealthy
	for _, c := range m {
		hc, ok := c.(core.HealthChecker)
		if !ok {
			continue
		}
		switch hc.Health(ctx) {
		case core.StatusUnhealthy:
			return core.StatusUnhealthy
		case core.StatusDegraded:
			status = core.StatusDegraded
		}
	}
	return status
}
