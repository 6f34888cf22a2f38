package utils

import "sort"

// Label 是推荐结果上的可解释标记：记录某个打分阶段留下的痕迹。
// Source 一般是 strategy / fusion / postprocess / experiment。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// NewLabel 构造一个 Label。
func NewLabel(value, source string) Label {
	return Label{Value: value, Source: source}
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	case existing.Source == incoming.Source:
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// Labels 是一组具名 Label。
type Labels map[string]Label

// Put 写入 Label，同名 key 按 MergeLabel 累积。nil map 上调用会返回新 map。
func (l Labels) Put(key string, lbl Label) Labels {
	if l == nil {
		l = make(Labels)
	}
	if old, ok := l[key]; ok {
		l[key] = MergeLabel(old, lbl)
		return l
	}
	l[key] = lbl
	return l
}

// Clone 深拷贝。
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Keys 返回排好序的 key 列表。
func (l Labels) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
