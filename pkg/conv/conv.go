// Package conv 从后处理 Node 的 config map 中取值。
//
// 值可能来自 YAML（int / float64）或环境变量（string），这里统一转换。
package conv

import (
	"strconv"
	"strings"
)

// ToFloat64 把数字或数字字符串转为 float64。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt 把数字或数字字符串转为 int，浮点数截断。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
		f, ok := ToFloat64(val)
		return int(f), ok
	default:
		return 0, false
	}
}

// ConfigGetInt 取 int，缺失或无法转换时返回 defaultVal。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	if v, ok := ToInt(m[key]); ok {
		return v
	}
	return defaultVal
}

// ConfigGetFloat64 取 float64，缺失或无法转换时返回 defaultVal。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if v, ok := ToFloat64(m[key]); ok {
		return v
	}
	return defaultVal
}
