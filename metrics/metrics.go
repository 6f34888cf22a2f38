// Package metrics 定义推荐服务的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 请求结果。
const (
	OutcomeSuccess  = "success"
	OutcomeCacheHit = "cache_hit"
	OutcomeFallback = "fallback"
)

var (
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_recommendation_requests_total",
			Help: "Total number of recommendation requests by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainrec_recommendation_duration_seconds",
			Help:    "End-to-end latency of recommendation requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"algorithm", "outcome"},
	)

	RecommendationItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trainrec_recommendation_items",
			Help:    "Number of items returned per recommendation response",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50, 100},
		},
	)

	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainrec_strategy_duration_seconds",
			Help:    "Latency of individual scoring strategies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_strategy_failures_total",
			Help: "Total number of strategy failures excluded from fusion",
		},
		[]string{"strategy"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_cache_requests_total",
			Help: "Response cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	FilteredCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_filtered_candidates_total",
			Help: "Candidates removed before scoring, by filter",
		},
		[]string{"filter"},
	)

	PostProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainrec_postprocess_node_duration_seconds",
			Help:    "Latency of post-processing nodes",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"node"},
	)

	BatchRefreshUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_batch_refresh_users_total",
			Help: "Users processed by batch model refresh, by result",
		},
		[]string{"result"},
	)

	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainrec_feedback_events_total",
			Help: "Feedback events recorded, by type",
		},
		[]string{"type"},
	)

	FeedbackDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trainrec_feedback_dropped_total",
			Help: "Feedback events dropped because the buffer was full or the sink failed",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trainrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordRecommendation 记录一次推荐请求。
func RecordRecommendation(algorithm, outcome string, items int, duration time.Duration) {
	RecommendationRequests.WithLabelValues(algorithm, outcome).Inc()
	RecommendationDuration.WithLabelValues(algorithm, outcome).Observe(duration.Seconds())
	RecommendationItems.Observe(float64(items))
}

// RecordStrategy 记录一次策略调用，err 非空时计入失败。
func RecordStrategy(strategy string, duration time.Duration, err error) {
	StrategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if err != nil {
		StrategyFailures.WithLabelValues(strategy).Inc()
	}
}

// RecordCache 记录一次缓存查询。
func RecordCache(hit bool, err error) {
	switch {
	case err != nil:
		CacheRequests.WithLabelValues("error").Inc()
	case hit:
		CacheRequests.WithLabelValues("hit").Inc()
	default:
		CacheRequests.WithLabelValues("miss").Inc()
	}
}

// RecordFiltered 记录过滤数量。
func RecordFiltered(dropped map[string]int) {
	for name, n := range dropped {
		FilteredCandidates.WithLabelValues(name).Add(float64(n))
	}
}

// RecordNode 记录后处理节点耗时。
func RecordNode(node string, duration time.Duration) {
	PostProcessDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordBatchUser 记录批量刷新中单个用户的结果。
func RecordBatchUser(err error) {
	if err != nil {
		BatchRefreshUsers.WithLabelValues("failed").Inc()
		return
	}
	BatchRefreshUsers.WithLabelValues("processed").Inc()
}

// RecordFeedback 记录反馈事件。
func RecordFeedback(eventType string) {
	FeedbackEvents.WithLabelValues(eventType).Inc()
}

// RecordFeedbackDropped 记录丢弃的反馈事件。
func RecordFeedbackDropped(n int) {
	FeedbackDropped.Add(float64(n))
}

// SetBreakerState 更新熔断器状态。
func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
