// Package datastore 持有当前合并后的数据包
// 历史请求的合并和流式推送都经过这里
package datastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/charmbracelet/log"
)

// staleTolerance 固定上界早于当前时间超过该值时丢弃推送
const staleTolerance = 1.0

// Store 数据包存储
type Store struct {
	mu         sync.Mutex
	current    *core.DataPacket
	generation uint64

	now    func() time.Time
	logger *log.Logger
}

// Option Store配置选项函数类型
type Option func(*Store)

// WithClock 设置时钟（测试使用）
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger 设置日志
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New 创建存储，初始数据包覆盖区间r
func New(r core.TimeRange, opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = core.NewDataPacket(r, 0)
	return s
}

// Current 返回当前数据包
func (s *Store) Current() *core.DataPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsCurrent 判断数据包是否仍是当前数据包
func (s *Store) IsCurrent(p *core.DataPacket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == p
}

// Reset 丢弃全部旧数据，为新区间创建数据包
func (s *Store) Reset(r core.TimeRange) *core.DataPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = core.NewDataPacket(r, s.generation)
	s.logger.Debug("data packet reset", "range", r.String(), "generation", s.generation)
	return s.current
}

// Push 合并一次流式推送
// 当前区间有已经过去的固定上界时推送被静默丢弃，返回 false
func (s *Store) Push(payload []byte) (bool, error) {
	now := s.now()
	data, err := ParsePush(payload, now)
	if err != nil {
		return false, err
	}

	packet := s.Current()
	r := packet.Meta().Range
	if !r.IsLive() && r.To < core.UnixSeconds(now)-staleTolerance {
		s.logger.Debug("dropping push for historical range", "range", r.String(), "channels", len(data))
		return false, nil
	}

	packet.MergeCurrent(data, now)
	return true, nil
}

// ParsePush 解析推送内容：通道名到值的映射
// 值可以是完整的通道数据对象，也可以是裸值（以推送时间作为时间戳）
func ParsePush(payload []byte, now time.Time) (map[string]*core.ChannelSeries, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("解析推送数据失败: %w", err)
	}

	ts := core.UnixSeconds(now)
	data := make(map[string]*core.ChannelSeries, len(raw))
	for name, value := range raw {
		if isSeriesObject(value) {
			var series core.ChannelSeries
			if err := json.Unmarshal(value, &series); err == nil {
				data[name] = &series
				continue
			}
		}
		var x any
		if err := json.Unmarshal(value, &x); err != nil {
			return nil, fmt.Errorf("解析通道 %s 失败: %w", name, err)
		}
		data[name] = core.NewScalarSeries(x, ts)
	}
	return data, nil
}

// isSeriesObject 判断是否为带 t 字段的通道数据对象
func isSeriesObject(value json.RawMessage) bool {
	if !bytes.HasPrefix(bytes.TrimSpace(value), []byte("{")) {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(value, &probe); err != nil {
		return false
	}
	_, hasT := probe["t"]
	return hasT
}
