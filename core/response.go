package core

import "time"

// PathProgress 是学习路径进度。
type PathProgress struct {
	PathID          string  `json:"path_id"`
	PathName        string  `json:"path_name"`
	CurrentStep     int     `json:"current_step"`
	TotalSteps      int     `json:"total_steps"`
	PercentComplete float64 `json:"percent_complete"`
}

// ResponseMetadata 是响应的附加信息。
type ResponseMetadata struct {
	RequestID       string             `json:"request_id"`
	Algorithm       Algorithm          `json:"algorithm"`
	AlgorithmsUsed  []Algorithm        `json:"algorithms_used,omitempty"`
	TotalCandidates int                `json:"total_candidates"`
	LatencyMS       int64              `json:"latency_ms"`
	CacheHit        bool               `json:"cache_hit"`
	ExperimentGroup string             `json:"experiment_group,omitempty"`
	Weights         map[string]float64 `json:"weights,omitempty"`
}

// Response 是一次推荐的结果。
type Response struct {
	UserID       string           `json:"user_id"`
	Items        []*Item          `json:"recommendations"`
	Metadata     ResponseMetadata `json:"metadata"`
	PathProgress *PathProgress    `json:"learning_path_progress,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Clone 深拷贝。
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = CloneItems(r.Items)
	out.Metadata.AlgorithmsUsed = append([]Algorithm(nil), r.Metadata.AlgorithmsUsed...)
	if r.Metadata.Weights != nil {
		out.Metadata.Weights = make(map[string]float64, len(r.Metadata.Weights))
		for k, v := range r.Metadata.Weights {
			out.Metadata.Weights[k] = v
		}
	}
	if r.PathProgress != nil {
		p := *r.PathProgress
		out.PathProgress = &p
	}
	return &out
}

// IsFallback 判断是否为降级响应。
func (r *Response) IsFallback() bool {
	return r != nil && r.Metadata.Algorithm == AlgorithmFallback
}
