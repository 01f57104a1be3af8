// Package core 通道数据序列
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ChannelSeries 表示一个通道的数据
// 标量快照 {x: value, t: timestamp} 或数组形式 {x: [...], t: [...], start: base}
// 数组形式中每个样本的绝对时间为 Start + T[i]
type ChannelSeries struct {
	Start  float64   // 基准时间戳
	T      []float64 // 相对Start的时间偏移，升序
	X      []any     // 与T等长的样本值
	Scalar bool      // 是否为标量快照形式
}

// NewScalarSeries 创建标量快照
func NewScalarSeries(x any, t float64) *ChannelSeries {
	return &ChannelSeries{
		T:      []float64{t},
		X:      []any{x},
		Scalar: true,
	}
}

// Len 返回样本数量
func (s *ChannelSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.T)
}

// Time 返回第i个样本的绝对时间
func (s *ChannelSeries) Time(i int) float64 {
	return s.Start + s.T[i]
}

// Value 返回第i个样本的值
func (s *ChannelSeries) Value(i int) any {
	return s.X[i]
}

// Float 尝试将第i个样本解释为数值
func (s *ChannelSeries) Float(i int) (float64, bool) {
	return toFloat(s.X[i])
}

// Last 返回最后一个样本
func (s *ChannelSeries) Last() (t float64, x any, ok bool) {
	n := s.Len()
	if n == 0 {
		return 0, nil, false
	}
	return s.Time(n - 1), s.X[n-1], true
}

// Append 返回在末尾追加一个样本的新序列，原序列不变
// 时间不晚于最后一个样本时 ok 为 false
func (s *ChannelSeries) Append(t float64, x any) (*ChannelSeries, bool) {
	if last, _, ok := s.Last(); ok && t <= last {
		return nil, false
	}
	n := s.Len()
	out := &ChannelSeries{
		Start: s.Start,
		T:     make([]float64, n, n+1),
		X:     make([]any, n, n+1),
	}
	copy(out.T, s.T)
	copy(out.X, s.X)
	out.T = append(out.T, t-s.Start)
	out.X = append(out.X, x)
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// UnmarshalJSON 解析两种通道数据形式
func (s *ChannelSeries) UnmarshalJSON(data []byte) error {
	var raw struct {
		X     json.RawMessage `json:"x"`
		T     json.RawMessage `json:"t"`
		Start *float64        `json:"start"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.T) == 0 {
		return errors.New("通道数据缺少时间戳字段 t")
	}

	*s = ChannelSeries{}
	if raw.Start != nil {
		s.Start = *raw.Start
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw.T), []byte("[")) {
		if err := json.Unmarshal(raw.T, &s.T); err != nil {
			return fmt.Errorf("解析时间数组失败: %w", err)
		}
		if len(raw.X) > 0 {
			if err := json.Unmarshal(raw.X, &s.X); err != nil {
				return fmt.Errorf("解析数值数组失败: %w", err)
			}
		}
		if len(s.X) != len(s.T) {
			return fmt.Errorf("x与t长度不一致: %d != %d", len(s.X), len(s.T))
		}
		s.sortByTime()
		return nil
	}

	var t float64
	if err := json.Unmarshal(raw.T, &t); err != nil {
		return fmt.Errorf("解析时间戳失败: %w", err)
	}
	var x any
	if len(raw.X) > 0 {
		if err := json.Unmarshal(raw.X, &x); err != nil {
			return fmt.Errorf("解析数值失败: %w", err)
		}
	}
	s.T = []float64{t}
	s.X = []any{x}
	s.Scalar = true
	return nil
}

// MarshalJSON 按原始形式输出
func (s *ChannelSeries) MarshalJSON() ([]byte, error) {
	if s.Scalar && len(s.T) == 1 {
		return json.Marshal(struct {
			X any     `json:"x"`
			T float64 `json:"t"`
		}{s.X[0], s.Start + s.T[0]})
	}
	return json.Marshal(struct {
		Start float64   `json:"start"`
		T     []float64 `json:"t"`
		X     []any     `json:"x"`
	}{s.Start, s.T, s.X})
}

// sortByTime 保证样本按时间升序
func (s *ChannelSeries) sortByTime() {
	if sort.Float64sAreSorted(s.T) {
		return
	}
	sort.Stable(byTime{s})
}

type byTime struct{ s *ChannelSeries }

func (b byTime) Len() int           { return len(b.s.T) }
func (b byTime) Less(i, j int) bool { return b.s.T[i] < b.s.T[j] }
func (b byTime) Swap(i, j int) {
	b.s.T[i], b.s.T[j] = b.s.T[j], b.s.T[i]
	b.s.X[i], b.s.X[j] = b.s.X[j], b.s.X[i]
}
