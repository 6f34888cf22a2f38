package engine

import (
	"context"
	"time"

	"github.com/pokeriq/trainrec/core"
)

// HealthReport 是各组件的健康状态汇总。
type HealthReport struct {
	Status     core.HealthStatus            `json:"status"`
	Components map[string]core.HealthStatus `json:"components"`
	Timestamp  time.Time                    `json:"timestamp"`
}

// HealthCheck 汇总数据源、缓存、实验、反馈以及各策略的状态。
// 没有实现 HealthChecker 的组件视为健康。
func (e *Engine) HealthCheck(ctx context.Context) HealthReport {
	components := map[string]core.HealthStatus{
		"data_service": check(ctx, e.data),
		"experiment":   check(ctx, e.experiments),
		"engine":       core.StatusHealthy,
	}
	if e.cache != nil {
		components["cache"] = e.cache.Health(ctx)
	}
	if e.collector != nil {
		components["metrics"] = check(ctx, e.collector)
	}
	for _, s := range e.registry.All() {
		components[s.Name()] = check(ctx, s)
	}
	return HealthReport{
		Status:     Aggregate(components),
		Components: components,
		Timestamp:  e.now(),
	}
}

func check(ctx context.Context, v any) core.HealthStatus {
	if hc, ok := v.(core.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return core.StatusHealthy
}

// Aggregate 任一组件 unhealthy 则整体 unhealthy；多于一个 degraded 时整体
// degraded；否则 healthy。
func Aggregate(components map[string]core.HealthStatus) core.HealthStatus {
	degraded := 0
	for _, s := range components {
		switch s {
		case core.StatusUnhealthy:
			return core.StatusUnhealthy
		case core.StatusDegraded:
			degraded++
		}
	}
	if degraded > 1 {
		return core.StatusDegraded
	}
	return core.StatusHealthy
}
