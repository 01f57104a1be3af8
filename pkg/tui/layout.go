// Package tui 布局管理模块
package tui

import (
	"fmt"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"gopkg.in/yaml.v3"
)

const (
	pageGrid     = "grid"
	pagePopout   = "popout"
	pageSettings = "settings"
)

const keyHelp = "r 刷新  ←/→ 平移  +/- 缩放  Tab 切换  Enter 放大  s 设置  q 退出"

// setupUI 设置用户界面布局
func (t *TUI) setupUI() {
	// 状态栏
	t.status.SetDynamicColors(true)
	t.status.SetWrap(false)
	t.status.SetText(fmt.Sprintf("[green]%s[white] - [yellow]正在等待数据...[white]", t.tuiConfig.Title))

	// 面板网格，按行优先填充
	columns := t.tuiConfig.Columns
	if columns > len(t.panels) && len(t.panels) > 0 {
		columns = len(t.panels)
	}
	rows := (len(t.panels) + columns - 1) / columns

	t.grid = tview.NewGrid()
	t.grid.SetColumns(repeatZero(columns)...)
	t.grid.SetRows(append(repeatZero(rows), 1)...)
	for i, p := range t.panels {
		t.grid.AddItem(p.Primitive(), i/columns, i%columns, 1, 1, 0, 0, false)
	}
	t.grid.AddItem(t.status, rows, 0, 1, columns, 0, 0, false)

	t.pages = tview.NewPages()
	t.pages.AddPage(pageGrid, t.grid, true, true)

	t.updateFocus()
	t.app.SetRoot(t.pages, true)
}

// repeatZero 返回n个按比例分配的网格尺寸
func repeatZero(n int) []int {
	sizes := make([]int, n)
	return sizes
}

// updateFocus 高亮当前选中的面板
func (t *TUI) updateFocus() {
	if t.testMode {
		return
	}
	for i, p := range t.panels {
		view := p.Primitive()
		if i == t.focused {
			view.SetBorderColor(tcell.ColorYellow)
		} else {
			view.SetBorderColor(tcell.ColorGray)
		}
	}
}

// openSettings 在弹窗中显示面板的YAML配置
func (t *TUI) openSettings(cfg core.PanelConfig) {
	t.settings = true
	if t.testMode {
		return
	}

	text, err := yaml.Marshal(cfg)
	if err != nil {
		text = []byte(err.Error())
	}

	modal := tview.NewModal()
	modal.SetText(string(text))
	modal.AddButtons([]string{"关闭", "重新配置"})
	modal.SetDoneFunc(func(_ int, label string) {
		t.closeOverlay()
		if label == "重新配置" {
			if host := t.currentHost(); host != nil {
				go host.Reconfigure()
			}
		}
	})
	t.pages.AddPage(pageSettings, modal, false, true)
	t.app.SetFocus(modal)
}

// closeOverlay 关闭设置弹窗或全屏面板，返回网格
func (t *TUI) closeOverlay() bool {
	switch {
	case t.settings:
		t.settings = false
		if !t.testMode {
			t.pages.RemovePage(pageSettings)
		}
	case t.popped != nil:
		t.popped = nil
		if !t.testMode {
			t.pages.RemovePage(pagePopout)
			t.pages.SwitchToPage(pageGrid)
		}
	default:
		return false
	}
	return true
}

// updateStatusLine 更新状态栏：更新状态、倒计时和当前区间
func (t *TUI) updateStatusLine() {
	t.status.SetText(t.statusText())
}

// statusText 生成状态栏文本
func (t *TUI) statusText() string {
	t.mu.Lock()
	source, packet, displayRange := t.source, t.packet, t.displayRange
	t.mu.Unlock()

	text := fmt.Sprintf("[green]%s[white]", t.tuiConfig.Title)
	if source != nil {
		status := source.Status()
		switch {
		case status.Time.IsZero() && status.Code == 0:
			text += "  [yellow]等待首次更新[white]"
		case status.OK():
			text += "  [green]" + status.String() + "[white]"
		default:
			text += "  [red]" + status.String() + "[white]"
		}

		if togo, ok := source.NextUpdate(); ok {
			text += fmt.Sprintf("  下次更新 %ds", int(togo.Seconds()))
		} else {
			text += "  手动刷新"
		}
	}

	if packet != nil {
		r := packet.Meta().Range
		if displayRange != nil {
			r = *displayRange
		}
		text += "  [gray]" + r.String() + "[white]"
	}

	return text + "  [gray]" + keyHelp + "[white]"
}
