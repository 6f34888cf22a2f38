package core

import (
	"fmt"
	"strings"
)

// Algorithm 标识打分策略，也用于请求中的算法选择。
type Algorithm string

const (
	AlgorithmCollaborative Algorithm = "COLLABORATIVE"
	AlgorithmContentBased  Algorithm = "CONTENT_BASED"
	AlgorithmDeepLearning  Algorithm = "DEEP_LEARNING"
	AlgorithmLearningPath  Algorithm = "LEARNING_PATH"
	AlgorithmHybrid        Algorithm = "HYBRID"

	// AlgorithmFallback 只会出现在响应里，请求不能指定。
	AlgorithmFallback Algorithm = "FALLBACK"
)

// ScoringAlgorithms 返回四种打分策略，顺序固定。
func ScoringAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmCollaborative,
		AlgorithmContentBased,
		AlgorithmDeepLearning,
		AlgorithmLearningPath,
	}
}

// RequestAlgorithms 返回请求可以指定的全部算法。
func RequestAlgorithms() []Algorithm {
	return append(ScoringAlgorithms(), AlgorithmHybrid)
}

func (a Algorithm) String() string { return string(a) }

// Requestable 判断算法能否出现在请求里。
func (a Algorithm) Requestable() bool {
	for _, v := range RequestAlgorithms() {
		if v == a {
			return true
		}
	}
	return false
}

// Key 返回小写形式，用于缓存 key、指标 label 等。
func (a Algorithm) Key() string {
	return strings.ToLower(string(a))
}

// ParseAlgorithm 解析算法名，大小写不敏感，也接受 "content-based" 这种写法。
// 空字符串解析为 HYBRID。
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AlgorithmHybrid, nil
	}
	a := Algorithm(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !a.Requestable() {
		return "", NewDomainError(ModuleRequest, ErrorCodeInvalidInput, fmt.Sprintf("unknown algorithm %q", s))
	}
	return a, nil
}
