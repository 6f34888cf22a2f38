package core

// RequestContext 是请求级上下文。
type RequestContext struct {
	SessionID         string    `json:"session_id,omitempty"`
	RecentPerformance []float64 `json:"recent_performance,omitempty"`
	AvailableMinutes  int       `json:"available_minutes,omitempty" validate:"gte=0"`
	TargetSkills      []string  `json:"target_skills,omitempty"`
	Exclude           []string  `json:"exclude,omitempty"`
}

// Request 是一次推荐请求。
type Request struct {
	UserID    string         `json:"user_id" validate:"required"`
	Context   RequestContext `json:"context"`
	Algorithm Algorithm      `json:"algorithm" validate:"required,oneof=COLLABORATIVE CONTENT_BASED DEEP_LEARNING LEARNING_PATH HYBRID"`
	Limit     int            `json:"limit" validate:"gte=1,lte=100"`
}

// Clone 拷贝请求，调用方的切片不会被后续流程修改。
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Context.RecentPerformance = append([]float64(nil), r.Context.RecentPerformance...)
	out.Context.TargetSkills = append([]string(nil), r.Context.TargetSkills...)
	out.Context.Exclude = append([]string(nil), r.Context.Exclude...)
	return &out
}
