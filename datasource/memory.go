// Package datasource 提供 core.DataService 的实现：内存、HTTP 以及熔断包装。
package datasource

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/strategy"
)

// Memory 是内存数据源，用于测试、本地开发和离线评估。
// 同时实现 strategy.NeighborStore。
type Memory struct {
	mu        sync.RWMutex
	profiles  map[string]*core.UserSkillProfile
	behaviors map[string]*core.UserBehaviorData
	history   map[string][]core.HistoryEntry
	catalog   map[string]*core.TrainingContent
}

func NewMemory() *Memory {
	return &Memory{
		profiles:  make(map[string]*core.UserSkillProfile),
		behaviors: make(map[string]*core.UserBehaviorData),
		history:   make(map[string][]core.HistoryEntry),
		catalog:   make(map[string]*core.TrainingContent),
	}
}

func (m *Memory) Name() string { return "memory" }

// PutProfile 写入画像。
func (m *Memory) PutProfile(p *core.UserSkillProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.UserID] = &cp
}

// PutBehavior 写入行为数据，并把交互同步到观看历史。
func (m *Memory) PutBehavior(b *core.UserBehaviorData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.Interactions = append([]core.Interaction(nil), b.Interactions...)
	m.behaviors[b.UserID] = &cp
	for _, in := range b.Interactions {
		m.history[b.UserID] = append(m.history[b.UserID], core.HistoryEntry{ContentID: in.ContentID, Timestamp: in.Timestamp})
	}
}

// PutHistory 追加观看历史。
func (m *Memory) PutHistory(userID string, entries ...core.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append(m.history[userID], entries...)
}

// PutContent 写入候选内容。
func (m *Memory) PutContent(contents ...*core.TrainingContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range contents {
		cp := *c
		m.catalog[c.ID] = &cp
	}
}

func (m *Memory) GetUserProfile(ctx context.Context, userID string) (*core.UserSkillProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeNotFound, fmt.Sprintf("profile %s not found", userID))
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) GetUserBehavior(ctx context.Context, userID string) (*core.UserBehaviorData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.behaviors[userID]
	if !ok {
		return &core.UserBehaviorData{UserID: userID}, nil
	}
	cp := *b
	cp.Interactions = append([]core.Interaction(nil), b.Interactions...)
	return &cp, nil
}

func (m *Memory) GetCandidateContent(ctx context.Context, q core.ContentQuery) ([]*core.TrainingContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cats map[string]struct{}
	if len(q.Categories) > 0 {
		cats = make(map[string]struct{}, len(q.Categories))
		for _, c := range q.Categories {
			cats[c] = struct{}{}
		}
	}
	out := make([]*core.TrainingContent, 0, len(m.catalog))
	for _, c := range m.catalog {
		if cats != nil {
			if _, ok := cats[c.Category]; !ok {
				continue
			}
		}
		if q.MaxMinutes > 0 && c.EstimatedMinutes > q.MaxMinutes {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) GetUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.HistoryEntry(nil), m.history[userID]...), nil
}

// GetNeighbors 返回除 userID 外有交互记录的用户，按 ID 排序。
func (m *Memory) GetNeighbors(ctx context.Context, userID string, limit int) ([]strategy.Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.behaviors))
	for id := range m.behaviors {
		if id != userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]strategy.Neighbor, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		b := m.behaviors[id]
		if len(b.Interactions) == 0 {
			continue
		}
		n := strategy.Neighbor{UserID: id, Performance: b.ContentPerformance()}
		if p, ok := m.profiles[id]; ok {
			n.Level = p.ClampedLevel()
			n.Skills = p.Skills
		}
		out = append(out, n)
	}
	return out, nil
}

// Health 内存数据源始终健康。
func (m *Memory) Health(context.Context) core.HealthStatus { return core.StatusHealthy }

// Fixture 是内存数据源的 YAML 结构。
type Fixture struct {
	Profiles  []*core.UserSkillProfile `yaml:"profiles"`
	Behaviors []*core.UserBehaviorData `yaml:"behaviors"`
	Content   []*core.TrainingContent  `yaml:"content"`
}

// LoadFixture 读取 YAML 数据文件到新的内存数据源。
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture 解析 YAML 数据。
func ParseFixture(data []byte) (*Memory, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	m := NewMemory()
	for _, p := range f.Profiles {
		m.PutProfile(p)
	}
	for _, b := range f.Behaviors {
		m.PutBehavior(b)
	}
	m.PutContent(f.Content...)
	return m, nil
}

var (
	_ core.DataService       = (*Memory)(nil)
	_ strategy.NeighborStore = (*Memory)(nil)
)
