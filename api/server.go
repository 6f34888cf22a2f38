// Package api 暴露推荐服务的 HTTP 接口。
//
//	GET  /health
//	GET  /metrics
//	GET  /api/recommendations/{userID}?limit=&algorithm=&exclude=&minutes=&skills=
//	POST /api/recommendations
//	POST /api/recommendations/feedback
//	POST /api/recommendations/preferences
//	POST /api/recommendations/refresh
//	GET  /api/recommendations/trending?limit=
//	GET  /api/recommendations/stats
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/engine"
	"github.com/pokeriq/trainrec/feedback"
	"github.com/pokeriq/trainrec/strategy"
)

// StatsSource 提供推荐统计。
type StatsSource interface {
	Stats() feedback.Stats
}

// Server 持有 HTTP 处理需要的依赖。
type Server struct {
	engine    *engine.Engine
	collector feedback.Collector
	stats     StatsSource
	trending  *strategy.Trending
	prefs     core.KeyValueStore

	logger   zerolog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option 配置 Server。
type Option func(*Server)

// WithCollector 设置接收用户反馈的 Collector。
func WithCollector(c feedback.Collector) Option { return func(s *Server) { s.collector = c } }

func WithStats(src StatsSource) Option { return func(s *Server) { s.stats = src } }

func WithTrending(t *strategy.Trending) Option { return func(s *Server) { s.trending = t } }

// WithPreferenceStore 偏好写入的 KV 存储，未设置时只清缓存。
func WithPreferenceStore(kv core.KeyValueStore) Option { return func(s *Server) { s.prefs = kv } }

func WithLogger(logger zerolog.Logger) Option { return func(s *Server) { s.logger = logger } }

// New 创建 Server。
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   e,
		logger:   zerolog.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "api").Logger()
	return s
}

// Router 返回完整路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/recommendations", func(r chi.Router) {
		r.Post("/", s.handlePostRecommendations)
		r.Get("/trending", s.handleTrending)
		r.Get("/stats", s.handleStats)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/preferences", s.handlePreferences)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/{userID}", s.handleGetRecommendations)
	})
	return r
}
