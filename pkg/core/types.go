// Package core 定义了仪表盘框架的核心数据结构和协作接口
// 这些接口保证了数据刷新管线与具体面板渲染的完全解耦
package core

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TimeRange 表示数据时间区间（单位：秒，Unix时间）
// To <= 0 表示相对于当前时间的上界，From <= 0 表示相对于上界的下界
// 两个字段只在使用时解析，使实时区间（To == 0）持续跟随当前时间
type TimeRange struct {
	From float64 `json:"from" yaml:"from"`
	To   float64 `json:"to" yaml:"to"`
}

// IsLive 判断区间上界是否跟随当前时间
func (r TimeRange) IsLive() bool {
	return r.To <= 0
}

// Resolve 在给定时刻将区间解析为绝对的起止时间
func (r TimeRange) Resolve(now time.Time) (from, to float64) {
	to = r.To
	if to <= 0 {
		to = UnixSeconds(now) + r.To
	}
	from = r.From
	if from <= 0 {
		from = to + r.From
	}
	return from, to
}

// Length 计算区间长度，规则与服务端对相对区间的解析保持一致
func (r TimeRange) Length(now time.Time) float64 {
	switch {
	case r.From <= 0:
		return -r.From
	case r.To <= 0:
		return UnixSeconds(now) + r.To - r.From
	default:
		return r.To - r.From
	}
}

// Absolute 返回在给定时刻固定下来的绝对区间
func (r TimeRange) Absolute(now time.Time) TimeRange {
	from, to := r.Resolve(now)
	return TimeRange{From: from, To: to}
}

// String 返回区间的可读表示
func (r TimeRange) String() string {
	if r.IsLive() {
		return fmt.Sprintf("last %s", formatSeconds(-r.From))
	}
	return fmt.Sprintf("%s - %s",
		FromUnixSeconds(r.From).Format("2006-01-02 15:04:05"),
		FromUnixSeconds(r.To).Format("2006-01-02 15:04:05"))
}

// UnixSeconds 将时间转换为带小数的Unix秒
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromUnixSeconds 将带小数的Unix秒转换为时间
func FromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func formatSeconds(s float64) string {
	return (time.Duration(s) * time.Second).String()
}

// CodeTransportFailure 表示请求未得到任何HTTP响应（网络中断等）
const CodeTransportFailure = -1

// Status 表示一次更新周期或请求的结果
type Status struct {
	Code int       // HTTP状态码，传输失败时为 CodeTransportFailure
	Text string    // 状态描述或错误信息
	Time time.Time // 结果产生的时间
}

// StatusOK 创建一个成功状态
func StatusOK(now time.Time) Status {
	return Status{Code: 200, Text: "OK", Time: now}
}

// OK 判断是否为成功状态
func (s Status) OK() bool {
	return s.Code >= 200 && s.Code < 300
}

// Reachable 判断服务端是否给出了HTTP响应（包括错误状态）
func (s Status) Reachable() bool {
	return s.Code > 0
}

// String 返回状态栏显示文本
func (s Status) String() string {
	if s.OK() {
		return "Update: " + s.Time.Format("15:04:05")
	}
	return fmt.Sprintf("Error [ Status %d, %s ]", s.Code, s.Text)
}

// PanelConfig 面板的声明式配置
type PanelConfig struct {
	Type     string         `yaml:"type"`
	Title    string         `yaml:"title,omitempty"`
	Channels []string       `yaml:"channels"`
	Format   string         `yaml:"format,omitempty"`
	Unit     string         `yaml:"unit,omitempty"`
	YMin     *float64       `yaml:"ymin,omitempty"`
	YMax     *float64       `yaml:"ymax,omitempty"`
	Live     bool           `yaml:"live,omitempty"` // 只在流式推送中更新，不参与首次之后的历史请求
	Options  map[string]any `yaml:"options,omitempty"`
}

// Panel 定义了面板的标准接口
// 任何面板实现（曲线图、表格、单值仪表等）都应该实现这个接口
type Panel interface {
	// FillInputChannels 将当前需要的通道名追加到acc并返回
	// 面板可以省略它认为已经满足的通道
	FillInputChannels(acc []string) []string

	// Draw 渲染当前数据，packet只读
	// 必须容忍部分数据包和缺失的通道（视为"尚未更新"而不是"没有数据"）
	Draw(packet *DataPacket, displayRange *TimeRange)

	// OpenSettings 打开面板设置视图
	OpenSettings()

	// Configure 应用配置并绑定宿主回调
	Configure(cfg PanelConfig, host PanelHost) error
}

// PanelHost 面板可以调用的宿主回调
// 由Controller实现，在Configure时注入面板
type PanelHost interface {
	// ChangeDisplayTimeRange 用户交互缩放/平移时调用
	ChangeDisplayTimeRange(r TimeRange)

	// ForceUpdate 立即请求一次更新
	ForceUpdate()

	// SuspendUpdate 暂停自动刷新一段时间
	SuspendUpdate(d time.Duration)

	// Reconfigure 重新配置所有面板
	Reconfigure()

	// Popout 单独显示一个面板
	Popout(p Panel)

	// Publish 向服务端写入控制值
	Publish(ctx context.Context, topic string, message any) error
}

// Layout 持有面板集合和网格布局
type Layout interface {
	// Panels 按注册顺序返回当前活动的面板
	Panels() []Panel

	// Draw 使用数据包重绘所有面板
	Draw(packet *DataPacket, displayRange *TimeRange)

	// Configure 配置所有面板并绑定宿主回调
	Configure(host PanelHost) error

	// Popout 单独显示一个面板
	Popout(p Panel)
}
