package core

// Weights 是各策略在融合时的权重。
type Weights map[Algorithm]float64

// Clone 拷贝。
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Normalize 去掉负数权重后归一化到和为 1；全为 0 时退化为均分。
func (w Weights) Normalize() Weights {
	out := make(Weights, len(w))
	var sum float64
	for k, v := range w {
		if v < 0 {
			v = 0
		}
		out[k] = v
		sum += v
	}
	if sum == 0 {
		if len(out) == 0 {
			return out
		}
		even := 1 / float64(len(out))
		for k := range out {
			out[k] = even
		}
		return out
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

// ToMap 转成字符串 key，便于序列化。
func (w Weights) ToMap() map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[string(k)] = v
	}
	return out
}

// WeightsFromMap 从字符串 key 构建，忽略未知算法。
func WeightsFromMap(m map[string]float64) Weights {
	out := make(Weights, len(m))
	for k, v := range m {
		a, err := ParseAlgorithm(k)
		if err != nil || a == AlgorithmHybrid {
			continue
		}
		out[a] = v
	}
	return out
}
