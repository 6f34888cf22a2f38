package core

import "context"

// DataService 是用户与内容数据的领域接口。
//
// 定义在领域层，由 datasource 包实现（内存、HTTP、熔断包装）。
// 约定：
//   - 资源不存在返回 NOT_FOUND
//   - 后端不可用返回 UNAVAILABLE
type DataService interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// GetUserProfile 获取用户技能画像
	GetUserProfile(ctx context.Context, userID string) (*UserSkillProfile, error)

	// GetUserBehavior 获取用户行为数据；没有行为的用户返回空数据而不是 NOT_FOUND
	GetUserBehavior(ctx context.Context, userID string) (*UserBehaviorData, error)

	// GetCandidateContent 获取候选内容
	GetCandidateContent(ctx context.Context, q ContentQuery) ([]*TrainingContent, error)

	// GetUserHistory 获取用户看过的内容
	GetUserHistory(ctx context.Context, userID string) ([]HistoryEntry, error)
}
