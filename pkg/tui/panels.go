// Package tui 面板实现
package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// 面板类型
const (
	PanelTimeSeries = "timeseries"
	PanelValue      = "value"
	PanelTable      = "table"
)

// panelView 带终端视图的面板
type panelView interface {
	core.Panel
	Primitive() *tview.TextView
	Config() core.PanelConfig
	Text() string
}

// newPanel 按配置类型创建面板
func newPanel(t *TUI, cfg core.PanelConfig) (panelView, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("面板 %q 没有配置通道", panelTitle(cfg))
	}
	base := newBasePanel(t, cfg)
	switch cfg.Type {
	case PanelTimeSeries:
		return &timeSeriesPanel{basePanel: base}, nil
	case PanelValue:
		return &valuePanel{basePanel: base}, nil
	case PanelTable:
		return &tablePanel{basePanel: base}, nil
	}
	return nil, fmt.Errorf("未知的面板类型: %q", cfg.Type)
}

// basePanel 面板的公共部分
type basePanel struct {
	tui  *TUI
	view *tview.TextView

	mu        sync.Mutex
	cfg       core.PanelConfig
	host      core.PanelHost
	text      string
	satisfied bool // live 面板已经拿到过全部通道
}

func newBasePanel(t *TUI, cfg core.PanelConfig) *basePanel {
	view := tview.NewTextView()
	view.SetDynamicColors(true)
	view.SetWrap(false)
	view.SetBorder(true)
	view.SetTitle(" " + panelTitle(cfg) + " ")

	return &basePanel{tui: t, view: view, cfg: cfg}
}

// panelTitle 面板标题，未配置时使用通道名
func panelTitle(cfg core.PanelConfig) string {
	if cfg.Title != "" {
		return cfg.Title
	}
	return strings.Join(cfg.Channels, ", ")
}

// FillInputChannels 追加面板需要的通道
// live 面板拿到过全部通道后只依赖推送，不再参与历史请求
func (p *basePanel) FillInputChannels(acc []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.Live && p.satisfied {
		return acc
	}
	return append(acc, p.cfg.Channels...)
}

// Configure 应用配置并绑定宿主回调
func (p *basePanel) Configure(cfg core.PanelConfig, host core.PanelHost) error {
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("面板 %q 没有配置通道", panelTitle(cfg))
	}

	p.mu.Lock()
	p.cfg = cfg
	p.host = host
	p.satisfied = false
	p.mu.Unlock()

	p.view.SetTitle(" " + panelTitle(cfg) + " ")
	return nil
}

// OpenSettings 打开面板设置弹窗
func (p *basePanel) OpenSettings() {
	p.tui.openSettings(p.Config())
}

// Primitive 返回面板视图
func (p *basePanel) Primitive() *tview.TextView {
	return p.view
}

// Config 返回面板配置
func (p *basePanel) Config() core.PanelConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Text 返回最近一次渲染的文本
func (p *basePanel) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// render 写入渲染结果并更新标题上的数据状态标记
func (p *basePanel) render(packet *core.DataPacket, text string) {
	cfg := p.Config()

	satisfied := true
	for _, name := range cfg.Channels {
		if !packet.Has(name) {
			satisfied = false
			break
		}
	}

	p.mu.Lock()
	p.text = text
	if satisfied {
		p.satisfied = true
	}
	p.mu.Unlock()

	meta := packet.Meta()
	title := " " + panelTitle(cfg) + " "
	switch {
	case meta.IsCurrent():
		title += "[green]●[-] "
	case meta.IsPartial():
		title += "[yellow]…[-] "
	}
	p.view.SetTitle(title)
	p.view.SetText(text)
}

// size 返回可绘制尺寸
func (p *basePanel) size() (width, height int) {
	_, _, width, height = p.view.GetInnerRect()

	// 确保有合理的最小尺寸
	if width < p.tui.tuiConfig.MinChartWidth {
		width = 80
	}
	if height < p.tui.tuiConfig.MinChartHeight {
		height = 15
	}
	return width, height
}

// timeSeriesPanel 曲线图面板
type timeSeriesPanel struct {
	*basePanel
}

// Draw 绘制显示窗口内的所有通道
func (p *timeSeriesPanel) Draw(packet *core.DataPacket, displayRange *core.TimeRange) {
	cfg := p.Config()
	width, height := p.size()

	var (
		series  []chartSeries
		legend  []string
		waiting []string
	)
	for i, name := range cfg.Channels {
		color := channelColor(i)
		points, ok := extractSeries(packet, name)
		if !ok {
			waiting = append(waiting, name)
			continue
		}
		series = append(series, chartSeries{name: name, color: color, points: points})
		legend = append(legend, color+"━ "+name+"[white]")
	}

	if len(series) == 0 {
		p.render(packet, "[yellow]等待数据...[white]")
		return
	}

	header := strings.Join(legend, "  ")
	if cfg.Unit != "" {
		header += "  [gray](" + cfg.Unit + ")[white]"
	}
	if len(waiting) > 0 {
		header += "  [yellow]等待: " + strings.Join(waiting, ", ") + "[white]"
	}

	w := p.tui.getTimeWindow(packet, displayRange)
	chart := p.tui.drawChart(series, w, cfg.YMin, cfg.YMax, width, height-1)
	p.render(packet, header+"\n"+chart)
}

// valuePanel 单值面板，显示第一个通道的最新值
type valuePanel struct {
	*basePanel
}

// Draw 绘制最新值和时间
func (p *valuePanel) Draw(packet *core.DataPacket, _ *core.TimeRange) {
	cfg := p.Config()
	name := cfg.Channels[0]

	ts, value, ok := latestSample(packet, name)
	if !ok {
		p.render(packet, "[yellow]等待数据...[white]")
		return
	}

	_, height := p.size()
	var b strings.Builder
	for i := 0; i < (height-2)/2; i++ {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "[::b]%s[::-]\n", formatSample(value, cfg.Format, cfg.Unit))
	fmt.Fprintf(&b, "[gray]%s  %s[white]", name, core.FromUnixSeconds(ts).Format("15:04:05"))

	p.view.SetTextAlign(tview.AlignCenter)
	p.render(packet, b.String())
}

// tablePanel 表格面板，每个通道一行
type tablePanel struct {
	*basePanel
}

// Draw 绘制每个通道的最新值和时间
func (p *tablePanel) Draw(packet *core.DataPacket, _ *core.TimeRange) {
	cfg := p.Config()

	nameWidth := len("通道")
	for _, name := range cfg.Channels {
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
	}

	lines := []string{fmt.Sprintf("[yellow]%-*s  %14s  %8s[white]", nameWidth, "通道", "值", "时间")}
	for i, name := range cfg.Channels {
		color := channelColor(i)
		ts, value, ok := latestSample(packet, name)
		if !ok {
			lines = append(lines, fmt.Sprintf("%s%-*s[white]  %14s  %8s", color, nameWidth, name, "等待数据", ""))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s%-*s[white]  %14s  %8s",
			color, nameWidth, name,
			formatSample(value, cfg.Format, cfg.Unit),
			core.FromUnixSeconds(ts).Format("15:04:05")))
	}

	p.view.SetTextColor(tcell.ColorWhite)
	p.render(packet, strings.Join(lines, "\n"))
}
