package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/datasource"
	"github.com/pokeriq/trainrec/feedback"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *apiError `json:"error,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(apiResponse{Status: "success", Data: data})
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug().Err(err).Msg("write response failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		s.logger.Warn().Err(err).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("code", code).
			Msg("request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, _ := json.Marshal(apiResponse{Status: "error", Error: &apiError{Code: code, Message: message}})
	_, _ = w.Write(body)
}

// respondDomainError 按 DomainError 的错误码映射 HTTP 状态码。
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsInvalidInput(err):
		s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error(), err)
	case core.IsNotFound(err):
		s.respondError(w, r, http.StatusNotFound, core.ErrorCodeNotFound, err.Error(), err)
	case core.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, r, http.StatusServiceUnavailable, core.ErrorCodeUnavailable, "backend unavailable", err)
	default:
		s.respondError(w, r, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error", err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid JSON body", err)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error(), nil)
		return false
	}
	return true
}

// handleGetRecommendations GET /api/recommendations/{userID}
func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &core.Request{UserID: chi.URLParam(r, "userID")}

	alg, err := core.ParseAlgorithm(q.Get("algorithm"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	req.Algorithm = alg

	for name, dst := range map[string]*int{"limit": &req.Limit, "minutes": &req.Context.AvailableMinutes} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid "+name, err)
			return
		}
		*dst = n
	}
	req.Context.Exclude = splitList(q.Get("exclude"))
	req.Context.TargetSkills = splitList(q.Get("skills"))
	req.Context.SessionID = r.Header.Get("X-Session-ID")

	s.serveRecommendations(w, r, req)
}

// handlePostRecommendations POST /api/recommendations
func (s *Server) handlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	var req core.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid JSON body", err)
		return
	}
	if req.UserID == "" {
		s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "user_id is required", nil)
		return
	}
	s.serveRecommendations(w, r, &req)
}

// serveRecommendations 推荐本身永远成功，降级结果同样返回 200。
func (s *Server) serveRecommendations(w http.ResponseWriter, r *http.Request, req *core.Request) {
	resp := s.engine.GetRecommendations(r.Context(), req)
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		w.Header().Set("X-Request-ID", id)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type feedbackRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	ContentID string `json:"content_id" validate:"required"`
	RequestID string `json:"request_id"`
	Feedback  string `json:"feedback" validate:"required"`
	Rating    int    `json:"rating" validate:"gte=0,lte=5"`
}

// handleFeedback POST /api/recommendations/feedback
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if !s.decode(w, r, &body) {
		return
	}
	typ, err := feedback.ParseOutcome(body.Feedback)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if s.collector == nil {
		s.respondError(w, r, http.StatusServiceUnavailable, core.ErrorCodeUnavailable, "feedback collection disabled", nil)
		return
	}

	ev := feedback.Event{
		Type:      typ,
		UserID:    body.UserID,
		ContentID: body.ContentID,
		RequestID: body.RequestID,
		Rating:    body.Rating,
		Timestamp: s.now(),
	}
	if err := s.collector.RecordOutcome(r.Context(), ev); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	// 负反馈会影响过滤结果，清缓存让下次请求重新计算
	if typ == feedback.EventNotHelpful {
		if err := s.engine.InvalidateUser(r.Context(), body.UserID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", body.UserID).Msg("invalidate after feedback failed")
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"recorded": true, "feedback": typ})
}

type preferencesRequest struct {
	UserID               string   `json:"user_id" validate:"required"`
	PreferredDifficulty  int      `json:"preferred_difficulty" validate:"gte=0,lte=10"`
	FocusAreas           []string `json:"focus_areas"`
	AvailableTimeMinutes int      `json:"available_time_minutes" validate:"gte=0"`
	LearningPace         string   `json:"learning_pace" validate:"omitempty,oneof=slow medium fast"`
}

// handlePreferences POST /api/recommendations/preferences
// 偏好写入 KV 后清掉缓存，下次请求经 datasource.WithPreferences 合并进画像。
func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var body preferencesRequest
	if !s.decode(w, r, &body) {
		return
	}
	if s.prefs != nil {
		err := datasource.SavePreferences(r.Context(), s.prefs, datasource.StoredPreferences{
			UserID:               body.UserID,
			PreferredDifficulty:  body.PreferredDifficulty,
			FocusAreas:           body.FocusAreas,
			AvailableTimeMinutes: body.AvailableTimeMinutes,
			LearningPace:         body.LearningPace,
		})
		if err != nil {
			s.respondDomainError(w, r, err)
			return
		}
	}
	if err := s.engine.InvalidateUser(r.Context(), body.UserID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"updated": true, "user_id": body.UserID})
}

type refreshRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=1000,dive,required"`
}

// handleRefresh POST /api/recommendations/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.engine.BatchUpdateUserModels(r.Context(), body.UserIDs)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleTrending GET /api/recommendations/trending
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			s.respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "limit must be between 1 and 100", err)
			return
		}
		limit = n
	}
	if s.trending == nil {
		s.respondJSON(w, http.StatusOK, []any{})
		return
	}
	top, err := s.trending.Top(r.Context(), limit)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, top)
}

// handleStats GET /api/recommendations/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.respondJSON(w, http.StatusOK, feedback.Stats{})
		return
	}
	s.respondJSON(w, http.StatusOK, s.stats.Stats())
}

// handleHealth GET /health，unhealthy 时返回 503。
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.engine.HealthCheck(r.Context())
	status := http.StatusOK
	if report.Status == core.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, report)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
