package strategy

import (
	"fmt"
	"sync"

	"github.com/pokeriq/trainrec/core"
)

// Registry 按算法保存策略。
type Registry struct {
	mu         sync.RWMutex
	strategies map[core.Algorithm]Strategy
}

// NewRegistry 创建注册表并注册给定策略。
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[core.Algorithm]Strategy)}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register 注册策略，同一算法后注册的覆盖先注册的。
func (r *Registry) Register(s Strategy) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Algorithm()] = s
}

// Get 获取某个算法的策略。
func (r *Registry) Get(alg core.Algorithm) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[alg]
	return s, ok
}

// All 按固定顺序返回所有已注册策略。
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.strategies))
	for _, alg := range core.ScoringAlgorithms() {
		if s, ok := r.strategies[alg]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Resolve 返回请求算法对应的策略集合：HYBRID 为全部，其余为单个。
func (r *Registry) Resolve(alg core.Algorithm) ([]Strategy, error) {
	if alg == core.AlgorithmHybrid || alg == "" {
		all := r.All()
		if len(all) == 0 {
			return nil, core.NewDomainError(core.ModuleStrategy, core.ErrorCodeUnavailable, "no strategies registered")
		}
		return all, nil
	}
	s, ok := r.Get(alg)
	if !ok {
		return nil, core.NewDomainError(core.ModuleStrategy, core.ErrorCodeNotSupported, fmt.Sprintf("strategy %s not registered", alg))
	}
	return []Strategy{s}, nil
}
