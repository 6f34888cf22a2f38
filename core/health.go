package core

import "context"

// HealthStatus 是组件健康状态。
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthChecker 由能报告自身状态的组件实现。
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}
