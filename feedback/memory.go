package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/metrics"
)

// Stats 是反馈统计。
type Stats struct {
	Served         int64            `json:"served"`
	Responses      int64            `json:"responses"`
	Fallbacks      int64            `json:"fallbacks"`
	AverageScore   float64          `json:"average_score"`
	Outcomes       map[string]int64 `json:"outcomes"`
	HelpfulRate    float64          `json:"helpful_rate"`
	CompletionRate float64          `json:"completion_rate"`
	ByAlgorithm    map[string]int64 `json:"by_algorithm"`
}

// MemoryCollector 在进程内累计统计，并保留最近的事件。
type MemoryCollector struct {
	mu        sync.Mutex
	maxEvents int
	events    []Event
	now       func() time.Time

	served      int64
	responses   int64
	fallbacks   int64
	scoreSum    float64
	outcomes    map[EventType]int64
	byAlgorithm map[core.Algorithm]int64
}

// NewMemoryCollector 创建内存收集器，maxEvents <= 0 时默认 1000。
func NewMemoryCollector(maxEvents int) *MemoryCollector {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &MemoryCollector{
		maxEvents:   maxEvents,
		now:         time.Now,
		outcomes:    make(map[EventType]int64),
		byAlgorithm: make(map[core.Algorithm]int64),
	}
}

func (c *MemoryCollector) RecordRecommendation(_ context.Context, resp *core.Response, _ *core.Request) error {
	if resp == nil {
		return nil
	}
	events := ServedEvents(resp, c.now())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses++
	if resp.IsFallback() {
		c.fallbacks++
	}
	c.byAlgorithm[resp.Metadata.Algorithm]++
	for _, ev := range events {
		c.served++
		c.scoreSum += ev.Score
		c.appendLocked(ev)
	}
	metrics.FeedbackEvents.WithLabelValues(string(EventServed)).Add(float64(len(events)))
	return nil
}

func (c *MemoryCollector) RecordOutcome(_ context.Context, ev Event) error {
	if _, err := ParseOutcome(string(ev.Type)); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[ev.Type]++
	c.appendLocked(ev)
	metrics.RecordFeedback(string(ev.Type))
	return nil
}

func (c *MemoryCollector) appendLocked(ev Event) {
	c.events = append(c.events, ev)
	if over := len(c.events) - c.maxEvents; over > 0 {
		c.events = append(c.events[:0:0], c.events[over:]...)
	}
}

// Events 返回最近事件的拷贝。
func (c *MemoryCollector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Stats 返回统计快照。
func (c *MemoryCollector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Served:      c.served,
		Responses:   c.responses,
		Fallbacks:   c.fallbacks,
		Outcomes:    make(map[string]int64, len(c.outcomes)),
		ByAlgorithm: make(map[string]int64, len(c.byAlgorithm)),
	}
	if c.served > 0 {
		s.AverageScore = c.scoreSum / float64(c.served)
	}
	var rated int64
	for t, n := range c.outcomes {
		s.Outcomes[string(t)] = n
		if t == EventHelpful || t == EventNotHelpful {
			rated += n
		}
	}
	if rated > 0 {
		s.HelpfulRate = float64(c.outcomes[EventHelpful]) / float64(rated)
	}
	if c.served > 0 {
		s.CompletionRate = float64(c.outcomes[EventCompleted]) / float64(c.served)
	}
	for a, n := range c.byAlgorithm {
		s.ByAlgorithm[string(a)] = n
	}
	return s
}

func (c *MemoryCollector) Close() error { return nil }

func (c *MemoryCollector) Health(context.Context) core.HealthStatus { return core.StatusHealthy }
