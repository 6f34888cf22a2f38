package model

import (
	"math"
	"math/rand/v2"
)

// FeedForward 是全连接前馈网络（Deep Neural Network）。
//
// 工程特征：
//   - 本地推理，无外部依赖
//   - 权重由种子确定，同一种子得到同一网络
//   - 隐藏层 ReLU，输出层线性，Predict 再做 Sigmoid
type FeedForward struct {
	// InputDim 是输入维度
	InputDim int

	// Layers 是每层的神经元数量，最后一层通常为 1
	Layers []int

	// Weights[layer][neuron][input]
	Weights [][][]float64

	// Biases[layer][neuron]
	Biases [][]float64
}

// NewFeedForward 创建前馈网络，权重使用 Xavier 均匀初始化。
func NewFeedForward(inputDim int, layers []int, seed uint64) *FeedForward {
	if len(layers) == 0 {
		layers = []int{32, 16, 1}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	m := &FeedForward{
		InputDim: inputDim,
		Layers:   layers,
		Weights:  make([][][]float64, len(layers)),
		Biases:   make([][]float64, len(layers)),
	}
	prev := inputDim
	for i, size := range layers {
		limit := math.Sqrt(6.0 / float64(prev+size))
		m.Weights[i] = make([][]float64, size)
		m.Biases[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			m.Weights[i][j] = make([]float64, prev)
			for k := 0; k < prev; k++ {
				m.Weights[i][j][k] = (rng.Float64()*2 - 1) * limit
			}
		}
		prev = size
	}
	return m
}

// Forward 前向传播，返回输出层第一个神经元的线性值。
// 输入不足 InputDim 时补 0，超出部分截断。
func (m *FeedForward) Forward(input []float64) float64 {
	current := make([]float64, m.InputDim)
	copy(current, input)

	for layer, size := range m.Layers {
		next := make([]float64, size)
		for j := 0; j < size; j++ {
			sum := m.Biases[layer][j]
			w := m.Weights[layer][j]
			for k := 0; k < len(w) && k < len(current); k++ {
				sum += w[k] * current[k]
			}
			if layer < len(m.Layers)-1 {
				next[j] = relu(sum)
			} else {
				next[j] = sum
			}
		}
		current = next
	}

	if len(current) > 0 {
		return current[0]
	}
	return 0.0
}

// Predict 前向传播后做 Sigmoid，输出概率。
func (m *FeedForward) Predict(input []float64) float64 {
	return sigmoid(m.Forward(input))
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	maxScore := scores[0]
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	if sum == 0 || math.IsNaN(sum) {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := 0; i < len(a) && i < len(b); i++ {
		s += a[i] * b[i]
	}
	return s
}
