package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/metrics"
)

// KafkaConfig 是 Kafka 收集器配置。
type KafkaConfig struct {
	Brokers []string `koanf:"brokers" yaml:"brokers"`
	Topic   string   `koanf:"topic" yaml:"topic"`

	BatchSize     int           `koanf:"batch_size" yaml:"batch_size"`         // 默认 100
	FlushInterval time.Duration `koanf:"flush_interval" yaml:"flush_interval"` // 默认 1s
	MaxBuffer     int           `koanf:"max_buffer" yaml:"max_buffer"`         // 缓冲上限，超出丢弃，默认 10000

	ClientID     string `koanf:"client_id" yaml:"client_id"`
	RequiredAcks int16  `koanf:"required_acks" yaml:"required_acks"` // 0 / 1=leader / -1=all
	Compression  string `koanf:"compression" yaml:"compression"`     // gzip / snappy / lz4 / zstd
	MaxRetries   int    `koanf:"max_retries" yaml:"max_retries"`
}

// producer 是 kgo.Client 中用到的部分，测试时替换。
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// KafkaCollector 把事件批量异步写入 Kafka，以用户 ID 为 key 保证同一用户的事件有序。
type KafkaCollector struct {
	client        producer
	topic         string
	batchSize     int
	maxBuffer     int
	flushInterval time.Duration
	logger        zerolog.Logger

	mu        sync.Mutex
	buffer    []Event
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
	flushCh   chan struct{}
	failures  int64
}

func (cfg *KafkaConfig) defaults() {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = 10000
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "trainrec-feedback"
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Topic == "" {
		cfg.Topic = "trainrec-feedback"
	}
}

// NewKafkaCollector 创建 Kafka 收集器并启动后台刷新。
func NewKafkaCollector(cfg KafkaConfig, logger zerolog.Logger) (*KafkaCollector, error) {
	cfg.defaults()

	var acks kgo.Acks
	switch cfg.RequiredAcks {
	case -1:
		acks = kgo.AllISRAcks()
	case 0:
		acks = kgo.NoAck()
	default:
		acks = kgo.LeaderAck()
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(acks),
		kgo.RecordRetries(cfg.MaxRetries),
	}
	if cfg.RequiredAcks != -1 {
		// 幂等写要求 acks=all
		opts = append(opts, kgo.DisableIdempotentWrite())
	}
	switch cfg.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeedback, core.ErrorCodeUnavailable, "create kafka client", err)
	}
	return newKafkaCollector(client, cfg, logger), nil
}

func newKafkaCollector(client producer, cfg KafkaConfig, logger zerolog.Logger) *KafkaCollector {
	cfg.defaults()
	c := &KafkaCollector{
		client:        client,
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		maxBuffer:     cfg.MaxBuffer,
		flushInterval: cfg.FlushInterval,
		logger:        logger.With().Str("component", "feedback.kafka").Str("topic", cfg.Topic).Logger(),
		buffer:        make([]Event, 0, cfg.BatchSize),
		stopCh:        make(chan struct{}),
		flushCh:       make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.flushLoop()
	return c
}

func (c *KafkaCollector) RecordRecommendation(_ context.Context, resp *core.Response, _ *core.Request) error {
	return c.bufferEvents(ServedEvents(resp, time.Now()))
}

func (c *KafkaCollector) RecordOutcome(_ context.Context, ev Event) error {
	if _, err := ParseOutcome(string(ev.Type)); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return c.bufferEvents([]Event{ev})
}

// bufferEvents 非阻塞写入缓冲，缓冲满时丢弃。
func (c *KafkaCollector) bufferEvents(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	room := c.maxBuffer - len(c.buffer)
	if room < len(events) {
		dropped := len(events) - max(room, 0)
		events = events[:max(room, 0)]
		metrics.RecordFeedbackDropped(dropped)
		c.logger.Warn().Int("dropped", dropped).Msg("feedback buffer full")
	}
	c.buffer = append(c.buffer, events...)
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if full {
		// 交给 flushLoop，已有待处理信号时不重复投递
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *KafkaCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.flushCh:
			c.flush()
		case <-c.stopCh:
			return
		}
	}
}

// flush 取出缓冲并异步发送。
func (c *KafkaCollector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	events := c.buffer
	c.buffer = make([]Event, 0, c.batchSize)
	c.mu.Unlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			c.logger.Warn().Err(err).Str("user_id", ev.UserID).Msg("encode feedback event")
			continue
		}
		record := &kgo.Record{Topic: c.topic, Key: []byte(ev.UserID), Value: data}
		c.client.Produce(context.Background(), record, func(r *kgo.Record, err error) {
			if err != nil {
				c.mu.Lock()
				c.failures++
				c.mu.Unlock()
				metrics.RecordFeedbackDropped(1)
				c.logger.Warn().Err(err).Str("key", string(r.Key)).Msg("produce feedback event")
			}
		})
	}
}

// Pending 返回尚未发送的事件数。
func (c *KafkaCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Health Kafka 不可达时视为 degraded：推荐仍可正常下发。
func (c *KafkaCollector) Health(ctx context.Context) core.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx); err != nil {
		return core.StatusDegraded
	}
	return core.StatusHealthy
}

// Close 停止后台刷新，发送剩余事件后关闭客户端。
func (c *KafkaCollector) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.wg.Wait()
		c.flush()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.client.Flush(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("flush feedback events on close")
		}
		c.client.Close()
	})
	return nil
}
