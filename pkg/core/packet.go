// Package core 数据包定义
package core

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// PacketState 表示数据包的状态
type PacketState int

const (
	PacketFresh    PacketState = iota // 新区间，尚未合并任何数据
	PacketMerging                     // 仍有子请求未完成
	PacketComplete                    // 历史数据请求已全部完成
	PacketLive                        // 由流式推送补充，只包含部分通道
)

// String 返回状态名称
func (s PacketState) String() string {
	switch s {
	case PacketFresh:
		return "fresh"
	case PacketMerging:
		return "merging"
	case PacketComplete:
		return "complete"
	case PacketLive:
		return "live"
	}
	return "unknown"
}

// Meta 数据包元信息（对应 __meta 键）
type Meta struct {
	Range           TimeRange   // 数据包对应的数据区间
	State           PacketState // 数据包状态
	CurrentDataTime time.Time   // 最近一次接受的推送时间，零值表示没有
	Generation      uint64      // 每次区间变化递增
}

// IsPartial 数据包是否仍在累积数据
func (m Meta) IsPartial() bool {
	return m.State == PacketMerging || m.State == PacketLive
}

// IsCurrent 数据包是否由流式推送产生或补充
func (m Meta) IsCurrent() bool {
	return m.State == PacketLive
}

// DataPacket 通道名到通道数据的映射加上元信息
// 合并时只替换映射项，从不原地修改 ChannelSeries，因此快照是一致的只读视图
type DataPacket struct {
	mu       sync.RWMutex
	meta     Meta
	channels map[string]*ChannelSeries
}

// NewDataPacket 创建新区间的空数据包
func NewDataPacket(r TimeRange, generation uint64) *DataPacket {
	return &DataPacket{
		meta:     Meta{Range: r, State: PacketFresh, Generation: generation},
		channels: make(map[string]*ChannelSeries),
	}
}

// Meta 返回元信息副本
func (p *DataPacket) Meta() Meta {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta
}

// Channel 获取通道数据
func (p *DataPacket) Channel(name string) (*ChannelSeries, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.channels[name]
	return s, ok
}

// Has 判断通道是否已存在
func (p *DataPacket) Has(name string) bool {
	_, ok := p.Channel(name)
	return ok
}

// Names 返回排序后的通道名
func (p *DataPacket) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.channels))
	for name := range p.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回通道数量
func (p *DataPacket) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels)
}

// BeginMerge 标记开始一轮历史数据请求
func (p *DataPacket) BeginMerge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meta.State = PacketMerging
}

// Merge 合并一批历史数据，同名通道覆盖旧值
// last 为 true 表示这是本轮最后完成的子请求；本区间已接受过推送时保持 Live
func (p *DataPacket) Merge(data map[string]*ChannelSeries, last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, series := range data {
		p.channels[name] = series
	}
	switch {
	case !p.meta.CurrentDataTime.IsZero():
		p.meta.State = PacketLive
	case last:
		p.meta.State = PacketComplete
	default:
		p.meta.State = PacketMerging
	}
}

// MergeCurrent 合并一次流式推送
// 标量推送追加到已有的历史序列末尾，乱序的样本被丢弃；其余情况直接替换
func (p *DataPacket) MergeCurrent(data map[string]*ChannelSeries, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, series := range data {
		existing, ok := p.channels[name]
		if !ok || existing.Scalar || !series.Scalar {
			p.channels[name] = series
			continue
		}
		t, x, ok := series.Last()
		if !ok {
			continue
		}
		if appended, ok := existing.Append(t, x); ok {
			p.channels[name] = appended
		}
	}
	p.meta.State = PacketLive
	p.meta.CurrentDataTime = now
}

// Snapshot 返回当前内容的只读副本，供面板渲染
func (p *DataPacket) Snapshot() *DataPacket {
	p.mu.RLock()
	defer p.mu.RUnlock()
	channels := make(map[string]*ChannelSeries, len(p.channels))
	for name, series := range p.channels {
		channels[name] = series
	}
	return &DataPacket{meta: p.meta, channels: channels}
}

// MarshalJSON 输出通道数据和 __meta
func (p *DataPacket) MarshalJSON() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]any, len(p.channels)+1)
	for name, series := range p.channels {
		out[name] = series
	}
	meta := map[string]any{
		"range":     p.meta.Range,
		"isPartial": p.meta.IsPartial(),
		"isCurrent": p.meta.IsCurrent(),
		"state":     p.meta.State.String(),
	}
	if p.meta.CurrentDataTime.IsZero() {
		meta["currentDataTime"] = nil
	} else {
		meta["currentDataTime"] = UnixSeconds(p.meta.CurrentDataTime)
	}
	out["__meta"] = meta
	return json.Marshal(out)
}
