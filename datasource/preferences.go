package datasource

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pokeriq/trainrec/core"
)

// StoredPreferences 是用户通过接口提交、保存在 KV 中的训练偏好。
type StoredPreferences struct {
	UserID               string   `json:"user_id"`
	PreferredDifficulty  int      `json:"preferred_difficulty"`
	FocusAreas           []string `json:"focus_areas"`
	AvailableTimeMinutes int      `json:"available_time_minutes"`
	LearningPace         string   `json:"learning_pace"`
}

// PreferencesKey 是偏好在 KeyValueStore 中的 key。
func PreferencesKey(userID string) string { return "preferences:" + userID }

// SavePreferences 覆盖写入用户偏好。
func SavePreferences(ctx context.Context, store core.KeyValueStore, p StoredPreferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return core.WrapDomainError(core.ModuleProfile, core.ErrorCodeInternalError, "encode preferences", err)
	}
	if err := store.Set(ctx, PreferencesKey(p.UserID), data); err != nil {
		return fmt.Errorf("save preferences %s: %w", p.UserID, err)
	}
	return nil
}

// LoadPreferences 读取用户偏好，没有保存过时 ok 为 false。
func LoadPreferences(ctx context.Context, store core.KeyValueStore, userID string) (StoredPreferences, bool, error) {
	var p StoredPreferences
	raw, err := store.Get(ctx, PreferencesKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return p, false, nil
		}
		return p, false, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false, fmt.Errorf("decode preferences %s: %w", userID, err)
	}
	return p, true, nil
}

// Apply 把偏好合并进画像，只覆盖设置过的字段。返回新画像，不修改入参。
func (p StoredPreferences) Apply(profile *core.UserSkillProfile) *core.UserSkillProfile {
	out := *profile
	if p.PreferredDifficulty >= 1 && p.PreferredDifficulty <= 10 {
		out.Preferences.Difficulty = p.PreferredDifficulty
	}
	if p.AvailableTimeMinutes > 0 {
		out.Preferences.SessionMinutes = p.AvailableTimeMinutes
	}
	if len(p.FocusAreas) > 0 {
		out.FocusAreas = append([]string(nil), p.FocusAreas...)
	}
	return &out
}

// WithPreferences 在下游画像上叠加用户保存的偏好，其余接口直接透传。
// 读取偏好失败时使用原画像并打 warn 日志。
type WithPreferences struct {
	next   core.DataService
	store  core.KeyValueStore
	logger zerolog.Logger
}

func NewWithPreferences(next core.DataService, store core.KeyValueStore, logger zerolog.Logger) *WithPreferences {
	return &WithPreferences{
		next:   next,
		store:  store,
		logger: logger.With().Str("component", "preferences").Logger(),
	}
}

func (w *WithPreferences) Name() string { return w.next.Name() }

func (w *WithPreferences) GetUserProfile(ctx context.Context, userID string) (*core.UserSkillProfile, error) {
	profile, err := w.next.GetUserProfile(ctx, userID)
	if err != nil || w.store == nil {
		return profile, err
	}
	prefs, ok, err := LoadPreferences(ctx, w.store, userID)
	if err != nil {
		w.logger.Warn().Err(err).Str("user_id", userID).Msg("preferences unavailable, using stored profile")
		return profile, nil
	}
	if !ok {
		return profile, nil
	}
	return prefs.Apply(profile), nil
}

func (w *WithPreferences) GetUserBehavior(ctx context.Context, userID string) (*core.UserBehaviorData, error) {
	return w.next.GetUserBehavior(ctx, userID)
}

func (w *WithPreferences) GetCandidateContent(ctx context.Context, q core.ContentQuery) ([]*core.TrainingContent, error) {
	return w.next.GetCandidateContent(ctx, q)
}

func (w *WithPreferences) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	return w.next.GetUserHistory(ctx, userID)
}

// Health 透传下游状态，下游不支持时视为健康。
func (w *WithPreferences) Health(ctx context.Context) core.HealthStatus {
	if hc, ok := w.next.(core.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return core.StatusHealthy
}

var _ core.DataService = (*WithPreferences)(nil)
