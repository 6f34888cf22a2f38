package model

// SequenceInput 是序列打分模型的输入，所有向量维度一致（Extra 除外）。
type SequenceInput struct {
	// User 是用户嵌入
	User []float64
	// Sequence 是最近交互的嵌入，按时间升序
	Sequence [][]float64
	// Candidate 是候选内容嵌入
	Candidate []float64
	// Extra 是稠密特征，例如等级、平均表现、难度，建议归一化到 [0, 1]
	Extra []float64
}

// SequenceScorer 是序列打分的最小抽象：输入用户、历史序列与候选，输出 [0, 1] 分数。
// 实现必须是只读的，可以被多个请求并发调用。
type SequenceScorer interface {
	Name() string
	Score(in SequenceInput) (ScoreResult, error)
}

// ScoreResult 是打分结果。
type ScoreResult struct {
	Score float64
	// Attention 是序列上的注意力分布，长度与 Sequence 一致
	Attention []float64
}
