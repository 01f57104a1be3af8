// Package tui 提供基于时间区间的终端仪表盘界面
// 面板按网格排列，实现 core.Layout
package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/rivo/tview"
)

// StatusSource 状态栏的数据来源
type StatusSource interface {
	Status() core.Status
	NextUpdate() (time.Duration, bool)
}

// TUI 主界面结构
type TUI struct {
	app    *tview.Application
	pages  *tview.Pages
	grid   *tview.Grid
	status *tview.TextView

	tuiConfig *Config
	panels    []panelView
	host      core.PanelHost
	source    StatusSource

	// 最近一次绘制的数据
	mu           sync.Mutex
	packet       *core.DataPacket
	displayRange *core.TimeRange

	// 界面状态
	focused  int
	popped   panelView
	settings bool
	nav      navThrottle

	// 控制
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	// 测试模式标志
	testMode bool

	now func() time.Time
}

// NewTUI 按面板配置创建TUI实例
func NewTUI(configs []core.PanelConfig, tuiConfig *Config) (*TUI, error) {
	t, err := newTUI(configs, tuiConfig, false)
	if err != nil {
		return nil, err
	}

	t.setupUI()
	t.setupKeyBindings()

	return t, nil
}

// NewTUIForTest 创建用于测试的TUI实例（不初始化图形布局）
func NewTUIForTest(configs []core.PanelConfig, tuiConfig *Config) (*TUI, error) {
	return newTUI(configs, tuiConfig, true)
}

func newTUI(configs []core.PanelConfig, tuiConfig *Config, testMode bool) (*TUI, error) {
	if err := tuiConfig.Validate(); err != nil {
		return nil, err
	}

	t := &TUI{
		app:       tview.NewApplication(),
		status:    tview.NewTextView(),
		tuiConfig: tuiConfig,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		testMode:  testMode,
		nav:       newNavThrottle(),
		now:       time.Now,
	}

	for i, cfg := range configs {
		panel, err := newPanel(t, cfg)
		if err != nil {
			return nil, fmt.Errorf("panels[%d]: %w", i, err)
		}
		t.panels = append(t.panels, panel)
	}

	return t, nil
}

// SetStatusSource 设置状态栏数据来源
func (t *TUI) SetStatusSource(source StatusSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = source
}

// Run 启动TUI界面，阻塞到界面退出
func (t *TUI) Run() error {
	go t.processUpdates()

	err := t.app.Run()

	// 确保刷新协程退出
	t.closeStop()
	<-t.doneChan

	return err
}

// Stop 停止TUI界面
func (t *TUI) Stop() {
	t.closeStop()
	t.app.Stop()
}

func (t *TUI) closeStop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

// processUpdates 按刷新间隔重绘，使实时区间的窗口随时间滚动
func (t *TUI) processUpdates() {
	defer close(t.doneChan)

	uiTicker := time.NewTicker(t.tuiConfig.RefreshInterval)
	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			t.handleUIRefresh()

		case <-t.stopChan:
			return
		}
	}
}

// handleUIRefresh 处理UI刷新
func (t *TUI) handleUIRefresh() {
	if t.testMode {
		t.drawPanels()
		return
	}
	// 界面退出后没有协程消费更新队列
	select {
	case <-t.stopChan:
		return
	default:
	}
	t.safeUIUpdate(t.drawPanels)
}

// Panels 按注册顺序返回面板
func (t *TUI) Panels() []core.Panel {
	panels := make([]core.Panel, len(t.panels))
	for i, p := range t.panels {
		panels[i] = p
	}
	return panels
}

// Draw 记录数据包并在界面协程中重绘所有面板
func (t *TUI) Draw(packet *core.DataPacket, displayRange *core.TimeRange) {
	t.mu.Lock()
	t.packet = packet
	t.displayRange = displayRange
	t.mu.Unlock()

	t.handleUIRefresh()
}

// drawPanels 使用最近一次的数据包重绘，必须在界面协程中调用
func (t *TUI) drawPanels() {
	t.mu.Lock()
	packet, displayRange := t.packet, t.displayRange
	t.mu.Unlock()

	if packet != nil {
		for _, p := range t.panels {
			p.Draw(packet, displayRange)
		}
	}
	t.updateStatusLine()
}

// Configure 配置所有面板并绑定宿主回调
func (t *TUI) Configure(host core.PanelHost) error {
	t.mu.Lock()
	t.host = host
	t.mu.Unlock()

	for i, p := range t.panels {
		if err := p.Configure(p.Config(), host); err != nil {
			return fmt.Errorf("panels[%d]: %w", i, err)
		}
	}
	return nil
}

// Popout 全屏显示一个面板，Esc 返回
func (t *TUI) Popout(p core.Panel) {
	for _, pv := range t.panels {
		if core.Panel(pv) != p {
			continue
		}
		t.popped = pv
		if !t.testMode {
			t.pages.AddAndSwitchToPage(pagePopout, pv.Primitive(), true)
		}
		return
	}
}

// currentHost 返回绑定的宿主
func (t *TUI) currentHost() core.PanelHost {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.host
}

// safeUIUpdate 安全地执行UI更新操作
func (t *TUI) safeUIUpdate(updateFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			// 如果应用已经停止，忽略panic
		}
	}()
	t.app.QueueUpdateDraw(updateFunc)
}
