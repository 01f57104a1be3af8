// Package tui 交互控制模块
package tui

import (
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/gdamore/tcell/v2"
)

// navThrottle 导航事件频率控制，连续事件达到阈值后休息一段时间
// 每次平移/缩放都会改变显示区间并重绘所有面板
type navThrottle struct {
	counter   int           // 事件计数器
	threshold int           // 达到次数后休息
	rest      time.Duration // 休息时长
	resting   bool          // 是否在休息状态
	last      time.Time     // 最后一次事件时间
}

func newNavThrottle() navThrottle {
	return navThrottle{
		threshold: 5,
		rest:      100 * time.Millisecond,
	}
}

// allow 判断是否应该处理导航事件
func (n *navThrottle) allow(now time.Time) bool {
	// 如果正在休息中，检查是否休息够了
	if n.resting {
		if now.Sub(n.last) >= n.rest {
			n.resting = false
			n.counter = 0
			return true
		}
		return false
	}
	return true
}

// record 记录导航事件
func (n *navThrottle) record(now time.Time) {
	n.counter++
	n.last = now

	if n.counter >= n.threshold {
		n.resting = true
	}
}

// setupKeyBindings 设置键盘绑定
func (t *TUI) setupKeyBindings() {
	t.app.SetInputCapture(t.handleKey)
}

// handleKey 处理按键，返回 nil 表示事件已消费
func (t *TUI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// 设置弹窗打开时按键交给弹窗处理
	if t.settings && event.Key() != tcell.KeyEscape && event.Key() != tcell.KeyCtrlC {
		return event
	}

	switch event.Key() {
	case tcell.KeyCtrlC:
		t.Stop()
		return nil
	case tcell.KeyEscape:
		t.closeOverlay()
		return nil
	case tcell.KeyTab:
		t.focusNext()
		return nil
	case tcell.KeyEnter:
		if p := t.focusedPanel(); p != nil {
			if host := t.currentHost(); host != nil {
				host.Popout(p)
			} else {
				t.Popout(p)
			}
		}
		return nil
	case tcell.KeyLeft:
		t.navigate(func(w core.TimeRange) core.TimeRange { return panRange(w, -t.tuiConfig.PanFraction) })
		return nil
	case tcell.KeyRight:
		t.navigate(func(w core.TimeRange) core.TimeRange { return panRange(w, t.tuiConfig.PanFraction) })
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			t.Stop()
			return nil
		case 'r', 'R':
			if host := t.currentHost(); host != nil {
				host.ForceUpdate()
			}
			return nil
		case 's', 'S':
			if p := t.focusedPanel(); p != nil {
				p.OpenSettings()
			}
			return nil
		case '+', '=':
			t.navigate(func(w core.TimeRange) core.TimeRange {
				return zoomRange(w, 1/t.tuiConfig.ZoomFactor, t.tuiConfig.MinWindow)
			})
			return nil
		case '-', '_':
			t.navigate(func(w core.TimeRange) core.TimeRange {
				return zoomRange(w, t.tuiConfig.ZoomFactor, t.tuiConfig.MinWindow)
			})
			return nil
		}
	}
	return event
}

// navigate 计算新的显示区间并交给宿主，宿主重绘并暂停自动刷新
func (t *TUI) navigate(change func(core.TimeRange) core.TimeRange) {
	now := t.now()
	if !t.nav.allow(now) {
		return
	}

	host := t.currentHost()
	window, ok := t.currentWindow()
	if host == nil || !ok {
		return
	}

	host.ChangeDisplayTimeRange(change(window))
	t.nav.record(now)
}

// focusNext 选中下一个面板
func (t *TUI) focusNext() {
	if len(t.panels) == 0 {
		return
	}
	t.focused = (t.focused + 1) % len(t.panels)
	t.updateFocus()
}

// focusedPanel 返回当前选中的面板
func (t *TUI) focusedPanel() panelView {
	if t.focused < 0 || t.focused >= len(t.panels) {
		return nil
	}
	return t.panels[t.focused]
}
