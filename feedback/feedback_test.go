package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/store"
)

func served(user string, scores ...float64) *core.Response {
	resp := &core.Response{UserID: user, Metadata: core.ResponseMetadata{RequestID: "r1", Algorithm: core.AlgorithmHybrid}}
	for i, s := range scores {
		it := core.NewItem(string(rune('a' + i)))
		it.Score = s
		it.FinalRank = i + 1
		resp.Items = append(resp.Items, it)
	}
	return resp
}

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"helpful", "not_helpful", "completed"} {
		_, err := ParseOutcome(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseOutcome("served")
	assert.True(t, core.IsInvalidInput(err))
}

func TestMemoryCollector_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollector(3)

	require.NoError(t, c.RecordRecommendation(ctx, served("u1", 0.8, 0.6), nil))
	fb := served("u2", 0.1)
	fb.Metadata.Algorithm = core.AlgorithmFallback
	require.NoError(t, c.RecordRecommendation(ctx, fb, nil))
	require.NoError(t, c.RecordOutcome(ctx, Event{Type: EventHelpful, UserID: "u1", ContentID: "a"}))
	require.NoError(t, c.RecordOutcome(ctx, Event{Type: EventNotHelpful, UserID: "u1", ContentID: "b"}))
	require.NoError(t, c.RecordOutcome(ctx, Event{Type: EventCompleted, UserID: "u1", ContentID: "a"}))
	assert.Error(t, c.RecordOutcome(ctx, Event{Type: "bogus"}))

	s := c.Stats()
	assert.EqualValues(t, 3, s.Served)
	assert.EqualValues(t, 2, s.Responses)
	assert.EqualValues(t, 1, s.Fallbacks)
	assert.InDelta(t, 0.5, s.AverageScore, 1e-9)
	assert.InDelta(t, 0.5, s.HelpfulRate, 1e-9)
	assert.InDelta(t, 1.0/3, s.CompletionRate, 1e-9)
	assert.EqualValues(t, 1, s.ByAlgorithm["FALLBACK"])

	// 只保留最近 3 条
	events := c.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventCompleted, events[2].Type)
}

func TestStoreCollector(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore(store.WithCleanupInterval(0))
	defer kv.Close()
	c := NewStoreCollector(kv)

	require.NoError(t, c.RecordOutcome(ctx, Event{Type: EventHelpful, UserID: "u1", ContentID: "a"}))
	require.NoError(t, c.RecordOutcome(ctx, Event{Type: EventNotHelpful, UserID: "u1", ContentID: "a"}))
	assert.Error(t, c.RecordOutcome(ctx, Event{Type: EventHelpful, UserID: "u1"}))

	out, err := c.Outcomes(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]EventType{"a": EventNotHelpful}, out)
}

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	failAll bool
	pingErr error
	closed  bool
}

func (p *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	p.records = append(p.records, r)
	fail := p.failAll
	p.mu.Unlock()
	var err error
	if fail {
		err = errors.New("broker down")
	}
	promise(r, err)
}

func (p *fakeProducer) Flush(context.Context) error { return nil }
func (p *fakeProducer) Ping(context.Context) error  { return p.pingErr }
func (p *fakeProducer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func TestKafkaCollector_FlushOnClose(t *testing.T) {
	fp := &fakeProducer{}
	c := newKafkaCollector(fp, KafkaConfig{Topic: "fb", BatchSize: 100, FlushInterval: time.Hour}, zerolog.Nop())

	require.NoError(t, c.RecordRecommendation(context.Background(), served("u1", 0.9, 0.7), nil))
	require.NoError(t, c.RecordOutcome(context.Background(), Event{Type: EventCompleted, UserID: "u1", ContentID: "a"}))
	assert.Equal(t, 3, c.Pending())

	require.NoError(t, c.Close())
	assert.Equal(t, 3, fp.count())
	assert.True(t, fp.closed)

	var ev Event
	require.NoError(t, json.Unmarshal(fp.records[0].Value, &ev))
	assert.Equal(t, EventServed, ev.Type)
	assert.Equal(t, "u1", string(fp.records[0].Key))
	assert.Equal(t, 1, ev.Position)

	// 关闭后写入被忽略
	require.NoError(t, c.RecordOutcome(context.Background(), Event{Type: EventHelpful, UserID: "u1", ContentID: "a"}))
	assert.Equal(t, 0, c.Pending())
}

func TestKafkaCollector_BatchFlushAndBackpressure(t *testing.T) {
	fp := &fakeProducer{}
	c := newKafkaCollector(fp, KafkaConfig{BatchSize: 2, MaxBuffer: 2, FlushInterval: time.Hour}, zerolog.Nop())
	defer c.Close()

	// 3 条事件，缓冲上限 2，多出来的一条被丢弃；达到批量后异步发送
	require.NoError(t, c.RecordRecommendation(context.Background(), served("u1", 0.9, 0.8, 0.7), nil))
	assert.Eventually(t, func() bool { return fp.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestKafkaCollector_Health(t *testing.T) {
	fp := &fakeProducer{}
	c := newKafkaCollector(fp, KafkaConfig{FlushInterval: time.Hour}, zerolog.Nop())
	defer c.Close()

	assert.Equal(t, core.StatusHealthy, c.Health(context.Background()))
	fp.pingErr = errors.New("no brokers")
	assert.Equal(t, core.StatusDegraded, c.Health(context.Background()))

	m := Multi{NewMemoryCollector(0), c}
	assert.Equal(t, core.StatusDegraded, m.Health(context.Background()))
}

// gatedProducer 在 gate 关闭前阻塞 Produce，用于观察进行中的批量发送。
type gatedProducer struct {
	fakeProducer
	entered    chan struct{}
	gate       chan struct{}
	afterClose bool
}

func (p *gatedProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.gate
	p.mu.Lock()
	if p.closed {
		p.afterClose = true
	}
	p.mu.Unlock()
	p.fakeProducer.Produce(ctx, r, promise)
}

func TestKafkaCollector_CloseWaitsForBatchFlush(t *testing.T) {
	gp := &gatedProducer{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	c := newKafkaCollector(gp, KafkaConfig{BatchSize: 2, FlushInterval: time.Hour}, zerolog.Nop())

	require.NoError(t, c.RecordRecommendation(context.Background(), served("u1", 0.9, 0.8), nil))
	select {
	case <-gp.entered:
	case <-time.After(time.Second):
		t.Fatal("batch flush did not start")
	}

	done := make(chan struct{})
	go func() {
		_ = c.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close returned while a batch was still being sent")
	case <-time.After(50 * time.Millisecond):
	}

	close(gp.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, 2, gp.count())
	assert.False(t, gp.afterClose, "no record may be produced after the client is closed")
	assert.True(t, gp.closed)
}
