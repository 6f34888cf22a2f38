package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/strategy"
)

// HTTP 通过 REST 接口访问画像服务与内容服务。
//
//	GET {ProfileURL}/users/{id}/profile
//	GET {ProfileURL}/users/{id}/behavior
//	GET {ProfileURL}/users/{id}/history
//	GET {ProfileURL}/users/{id}/neighbors?limit=50
//	GET {ContentURL}/content?categories=a,b&max_minutes=30&limit=200
//
// 404 映射为 NOT_FOUND；网络错误与 5xx 映射为 UNAVAILABLE。
// 行为与历史接口的 404 视为用户没有数据。
type HTTP struct {
	ProfileURL string
	ContentURL string
	Client     *http.Client
}

// NewHTTP 创建 HTTP 数据源，timeout <= 0 时默认 2s。
func NewHTTP(profileURL, contentURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTP{
		ProfileURL: strings.TrimRight(profileURL, "/"),
		ContentURL: strings.TrimRight(contentURL, "/"),
		Client:     &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) GetUserProfile(ctx context.Context, userID string) (*core.UserSkillProfile, error) {
	var p core.UserSkillProfile
	if err := h.getJSON(ctx, core.ModuleProfile, h.userURL(userID, "profile"), &p); err != nil {
		return nil, err
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}

func (h *HTTP) GetUserBehavior(ctx context.Context, userID string) (*core.UserBehaviorData, error) {
	var b core.UserBehaviorData
	if err := h.getJSON(ctx, core.ModuleBehavior, h.userURL(userID, "behavior"), &b); err != nil {
		if core.IsNotFound(err) {
			return &core.UserBehaviorData{UserID: userID}, nil
		}
		return nil, err
	}
	if b.UserID == "" {
		b.UserID = userID
	}
	return &b, nil
}

func (h *HTTP) GetCandidateContent(ctx context.Context, q core.ContentQuery) ([]*core.TrainingContent, error) {
	v := url.Values{}
	if q.UserID != "" {
		v.Set("user_id", q.UserID)
	}
	if len(q.Categories) > 0 {
		v.Set("categories", strings.Join(q.Categories, ","))
	}
	if q.MaxMinutes > 0 {
		v.Set("max_minutes", strconv.Itoa(q.MaxMinutes))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	u := h.ContentURL + "/content"
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}

	var out []*core.TrainingContent
	if err := h.getJSON(ctx, core.ModuleCatalog, u, &out); err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (h *HTTP) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	var out []core.HistoryEntry
	if err := h.getJSON(ctx, core.ModuleHistory, h.userURL(userID, "history"), &out); err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

type neighborDTO struct {
	UserID      string             `json:"user_id"`
	Level       int                `json:"level"`
	Skills      map[string]float64 `json:"skills"`
	Performance map[string]float64 `json:"performance"`
}

// GetNeighbors 拉取协同过滤的候选用户，404 视为没有邻居。
func (h *HTTP) GetNeighbors(ctx context.Context, userID string, limit int) ([]strategy.Neighbor, error) {
	u := h.userURL(userID, "neighbors")
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var dto []neighborDTO
	if err := h.getJSON(ctx, core.ModuleProfile, u, &dto); err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]strategy.Neighbor, 0, len(dto))
	for _, n := range dto {
		if n.UserID == "" || n.UserID == userID {
			continue
		}
		out = append(out, strategy.Neighbor{UserID: n.UserID, Level: n.Level, Skills: n.Skills, Performance: n.Performance})
	}
	return out, nil
}

func (h *HTTP) userURL(userID, resource string) string {
	return fmt.Sprintf("%s/users/%s/%s", h.ProfileURL, url.PathEscape(userID), resource)
}

func (h *HTTP) getJSON(ctx context.Context, module, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return core.WrapDomainError(module, core.ErrorCodeInternalError, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return core.WrapDomainError(module, core.ErrorCodeUnavailable, "request "+u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return core.NewDomainError(module, core.ErrorCodeNotFound, "not found: "+u)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return core.NewDomainError(module, core.ErrorCodeUnavailable, fmt.Sprintf("status %d from %s", resp.StatusCode, u))
	case resp.StatusCode >= 400:
		_, _ = io.Copy(io.Discard, resp.Body)
		return core.NewDomainError(module, core.ErrorCodeInvalidInput, fmt.Sprintf("status %d from %s", resp.StatusCode, u))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapDomainError(module, core.ErrorCodeInternalError, "decode "+u, err)
	}
	return nil
}

var (
	_ core.DataService       = (*HTTP)(nil)
	_ strategy.NeighborStore = (*HTTP)(nil)
)
