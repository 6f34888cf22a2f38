package model

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// EmbeddingTable 是并发安全的嵌入表，按 (kind, id) 存储向量。
//
// 首次访问某个 id 时用 seed 与 id 的哈希初始化向量，并发首次访问只有一个
// 初始化结果生效，之后的读取都返回同一个向量。Refresh 可显式覆盖。
// 返回的切片为只读，调用方不得修改。
type EmbeddingTable struct {
	dim  int
	seed uint64
	m    sync.Map // string -> []float64
	size atomic.Int64
}

// NewEmbeddingTable 创建嵌入表；seed 为 0 时使用进程级随机种子。
func NewEmbeddingTable(dim int, seed uint64) *EmbeddingTable {
	if dim <= 0 {
		dim = 16
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &EmbeddingTable{dim: dim, seed: seed}
}

// Dim 返回嵌入维度。
func (t *EmbeddingTable) Dim() int { return t.dim }

func tableKey(kind, id string) string {
	return kind + ":" + id
}

// Get 获取嵌入，不存在时初始化。
func (t *EmbeddingTable) Get(kind, id string) []float64 {
	key := tableKey(kind, id)
	if v, ok := t.m.Load(key); ok {
		return v.([]float64)
	}
	actual, loaded := t.m.LoadOrStore(key, t.initVector(key))
	if !loaded {
		t.size.Add(1)
	}
	return actual.([]float64)
}

// Lookup 只读取，不初始化。
func (t *EmbeddingTable) Lookup(kind, id string) ([]float64, bool) {
	v, ok := t.m.Load(tableKey(kind, id))
	if !ok {
		return nil, false
	}
	return v.([]float64), true
}

// Refresh 用给定向量覆盖嵌入，向量会被拷贝并补齐或截断到 Dim。
func (t *EmbeddingTable) Refresh(kind, id string, vec []float64) {
	cp := make([]float64, t.dim)
	copy(cp, vec)
	if _, loaded := t.m.Swap(tableKey(kind, id), cp); !loaded {
		t.size.Add(1)
	}
}

// Len 返回已初始化的嵌入数量。
func (t *EmbeddingTable) Len() int {
	return int(t.size.Load())
}

// initVector 生成均值为 0、L2 范数为 1 的向量。
func (t *EmbeddingTable) initVector(key string) []float64 {
	h := xxhash.Sum64String(key)
	rng := rand.New(rand.NewPCG(t.seed, h))
	vec := make([]float64, t.dim)
	var norm float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
