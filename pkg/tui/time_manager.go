// Package tui 时间管理模块
package tui

import (
	"github.com/Kevin-Rudy/godash/pkg/core"
)

// timeWindow 绘图使用的绝对时间窗口（Unix秒）
type timeWindow struct {
	start, end float64
}

// getTimeWindow 获取绘图窗口：优先使用显示区间，否则使用数据包的数据区间
func (t *TUI) getTimeWindow(packet *core.DataPacket, displayRange *core.TimeRange) timeWindow {
	r := packet.Meta().Range
	if displayRange != nil {
		r = *displayRange
	}
	start, end := r.Resolve(t.now())
	return timeWindow{start: start, end: end}
}

// contains 判断时间戳是否在窗口内
func (w timeWindow) contains(ts float64) bool {
	return ts >= w.start && ts <= w.end
}

// timestampToX 将时间戳转换为X坐标
func timestampToX(ts float64, w timeWindow, chartWidth int) int {
	windowDuration := w.end - w.start
	if windowDuration <= 0 {
		return 0
	}

	offset := ts - w.start
	if offset < 0 {
		return -1 // 在窗口左边界外
	}
	if offset > windowDuration {
		return chartWidth // 在窗口右边界外
	}

	// 将时间偏移转换为X坐标，右边界落在最后一列
	x := int(offset / windowDuration * float64(chartWidth-1))
	return x
}

// panRange 按窗口长度的比例平移，fraction 为负时向过去平移
func panRange(r core.TimeRange, fraction float64) core.TimeRange {
	step := (r.To - r.From) * fraction
	return core.TimeRange{From: r.From + step, To: r.To + step}
}

// zoomRange 以窗口中心缩放，factor 小于1时放大
func zoomRange(r core.TimeRange, factor, minWindow float64) core.TimeRange {
	center := (r.From + r.To) / 2
	half := (r.To - r.From) / 2 * factor
	if half*2 < minWindow {
		half = minWindow / 2
	}
	return core.TimeRange{From: center - half, To: center + half}
}

// currentWindow 返回当前显示窗口的绝对区间，还没有数据时 ok 为 false
func (t *TUI) currentWindow() (core.TimeRange, bool) {
	t.mu.Lock()
	packet, displayRange := t.packet, t.displayRange
	t.mu.Unlock()

	if packet == nil {
		return core.TimeRange{}, false
	}
	w := t.getTimeWindow(packet, displayRange)
	return core.TimeRange{From: w.start, To: w.end}, true
}
