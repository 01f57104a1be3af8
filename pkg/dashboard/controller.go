// Package dashboard 仪表盘控制器
// 串联通道收集、数据拉取、实时推送和面板重绘
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/datastore"
	"github.com/Kevin-Rudy/godash/pkg/fetcher"
	"github.com/Kevin-Rudy/godash/pkg/metrics"
	"github.com/Kevin-Rudy/godash/pkg/scheduler"
	"github.com/Kevin-Rudy/godash/pkg/streaming"
	"github.com/charmbracelet/log"
)

// TopicCurrentData 可以直接通过推送连接发送的主题
const TopicCurrentData = "currentdata"

// ErrReset 重置期限到达，调用方应该重建整个仪表盘
var ErrReset = errors.New("仪表盘需要重建")

// Controller 仪表盘控制器，实现 core.PanelHost
type Controller struct {
	config   *Config
	layout   core.Layout
	store    *datastore.Store
	fetcher  *fetcher.Fetcher
	stream   *streaming.Client
	sched    *scheduler.Scheduler
	logger   *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	onStatus func(core.Status)

	mu           sync.Mutex
	running      bool
	retarget     bool // 进行中的周期结束前区间被替换
	dataRange    core.TimeRange
	displayRange *core.TimeRange
	status       core.Status

	ctx     context.Context
	resetCh chan struct{}
}

// Deps 控制器依赖
type Deps struct {
	Fetcher   *fetcher.Fetcher
	Scheduler *scheduler.Config
	Streaming *streaming.Config // EnableStreaming 为 false 时忽略
}

// ControllerOption 控制器选项
type ControllerOption func(*Controller)

// WithLogger 设置日志
func WithLogger(logger *log.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock 设置时钟（测试使用）
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// WithStatusHandler 设置更新状态回调（状态栏）
func WithStatusHandler(fn func(core.Status)) ControllerOption {
	return func(c *Controller) {
		c.onStatus = fn
	}
}

// New 创建控制器
func New(config *Config, layout core.Layout, deps Deps, opts ...ControllerOption) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if layout == nil {
		return nil, errors.New("布局不能为空")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("数据拉取器不能为空")
	}

	c := &Controller{
		config:    config,
		layout:    layout,
		fetcher:   deps.Fetcher,
		logger:    log.Default(),
		now:       time.Now,
		dataRange: config.Range,
		ctx:       context.Background(),
		resetCh:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.store = datastore.New(config.Range,
		datastore.WithClock(c.now),
		datastore.WithLogger(c.logger.WithPrefix("store")))

	schedConfig := deps.Scheduler
	if schedConfig == nil {
		schedConfig = scheduler.DefaultConfig()
	}
	sched, err := scheduler.New(schedConfig, c.scheduledUpdate,
		scheduler.WithResetHandler(c.requestReset),
		scheduler.WithClock(c.now),
		scheduler.WithLogger(c.logger.WithPrefix("scheduler")),
		scheduler.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}
	c.sched = sched

	if config.EnableStreaming {
		streamConfig := streaming.DefaultConfig()
		if deps.Streaming != nil {
			copied := *deps.Streaming
			streamConfig = &copied
		}
		if streamConfig.BaseURL == "" || deps.Streaming == nil {
			streamConfig.BaseURL = deps.Fetcher.BaseURL()
		}
		stream, err := streaming.New(streamConfig, c.handlePush,
			streaming.WithLogger(c.logger.WithPrefix("stream")),
			streaming.WithMetrics(c.metrics))
		if err != nil {
			// 推送不可用时退化为只轮询
			c.logger.Warn("streaming disabled", "err", err)
		} else {
			c.stream = stream
		}
	}

	return c, nil
}

// Start 绑定面板并绘制，建立推送连接并启动调度器
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.layout.Configure(c); err != nil {
		return err
	}
	c.Draw()

	if c.stream != nil {
		if err := c.stream.Connect(ctx); err != nil {
			c.logger.Warn("stream connect failed", "err", err)
		}
	}

	c.sched.ScheduleReset()
	c.sched.Start(ctx)
	return nil
}

// Stop 停止调度器并关闭推送连接
func (c *Controller) Stop() {
	c.sched.Stop()
	if c.stream != nil {
		c.stream.Close()
	}
}

// ResetRequested 重置期限到达时可读
func (c *Controller) ResetRequested() <-chan struct{} {
	return c.resetCh
}

// requestReset 调度器回调，不能阻塞
func (c *Controller) requestReset() {
	select {
	case c.resetCh <- struct{}{}:
	default:
	}
}

// scheduledUpdate 周期更新，按当前数据区间重新拉取全部通道
func (c *Controller) scheduledUpdate(ctx context.Context) core.Status {
	r := c.DataRange()
	return c.Update(ctx, &r)
}

// Update 执行一个更新周期
// r 不为空时丢弃当前数据包并切换到新区间，为空时只补齐缺失的通道
// 已有周期进行中时立即返回成功，不发出任何请求；区间变化仍然立即生效
func (c *Controller) Update(ctx context.Context, r *core.TimeRange) core.Status {
	return c.update(ctx, r, nil)
}

// update 执行更新周期，区间变化时显示区间被替换为 display
// 周期进行中到达的区间变化立即替换数据包，旧周期的合并落在已分离的数据包上，
// 进行中的周期结束后接着为新数据包拉取
func (c *Controller) update(ctx context.Context, r, display *core.TimeRange) core.Status {
	c.mu.Lock()
	if r != nil {
		c.dataRange = *r
		c.displayRange = display
		c.store.Reset(*r)
	}
	if c.running {
		if r != nil {
			c.retarget = true
		}
		c.mu.Unlock()
		return core.StatusOK(c.now())
	}
	c.running = true
	packet := c.store.Current()
	c.mu.Unlock()

	var status core.Status
	for {
		status = c.cycle(ctx, packet)

		c.mu.Lock()
		if !c.retarget || ctx.Err() != nil {
			c.retarget = false
			c.running = false
			c.status = status
			c.mu.Unlock()
			break
		}
		c.retarget = false
		packet = c.store.Current()
		c.mu.Unlock()
		c.logger.Debug("range replaced during update", "range", packet.Meta().Range.String())
	}

	if c.onStatus != nil {
		c.onStatus(status)
	}

	// 服务端有响应但推送未连接时尝试恢复
	if c.stream != nil && !c.stream.Connected() && status.Reachable() {
		if err := c.stream.Connect(ctx); err != nil {
			c.logger.Debug("stream recovery failed", "err", err)
		}
	}
	return status
}

// cycle 拉取数据包中缺失的通道并逐批合并
func (c *Controller) cycle(ctx context.Context, packet *core.DataPacket) core.Status {
	missing := missingChannels(CollectChannels(c.layout.Panels()), packet)
	if len(missing) == 0 {
		c.draw(packet)
		c.metrics.IncUpdateCycle("cached")
		return core.StatusOK(c.now())
	}

	packet.BeginMerge()
	reqs := c.fetcher.Plan(missing, packet.Meta().Range, c.now())
	c.logger.Debug("update cycle", "channels", len(missing), "requests", len(reqs), "range", packet.Meta().Range.String())

	status := c.fetcher.Fetch(ctx, reqs, func(batch fetcher.Batch) {
		packet.Merge(batch.Data, batch.Last)
		c.draw(packet)
	})

	if status.OK() {
		c.metrics.IncUpdateCycle("ok")
	} else {
		c.metrics.IncUpdateCycle("error")
	}
	return status
}

// handlePush 处理一条实时推送
func (c *Controller) handlePush(payload []byte) {
	accepted, err := c.store.Push(payload)
	switch {
	case err != nil:
		c.metrics.IncStreamMessage("invalid")
		c.logger.Warn("invalid push", "err", err)
	case !accepted:
		c.metrics.IncStreamMessage("dropped")
	default:
		c.metrics.IncStreamMessage("accepted")
		c.draw(c.store.Current())
	}
}

// draw 只有当数据包仍是当前数据包时才重绘
func (c *Controller) draw(packet *core.DataPacket) {
	if !c.store.IsCurrent(packet) {
		return
	}
	c.mu.Lock()
	var displayRange *core.TimeRange
	if c.displayRange != nil {
		r := *c.displayRange
		displayRange = &r
	}
	c.mu.Unlock()

	c.layout.Draw(packet.Snapshot(), displayRange)
}

// Draw 使用当前数据包重绘
func (c *Controller) Draw() {
	c.draw(c.store.Current())
}

// ChangeDisplayTimeRange 改变显示区间，重绘并暂停自动刷新
// 显示区间超出数据区间时扩大数据区间并重新拉取，显示区间保持不变
func (c *Controller) ChangeDisplayTimeRange(r core.TimeRange) {
	c.mu.Lock()
	c.displayRange = &r
	data := c.dataRange
	ctx := c.ctx
	c.mu.Unlock()

	c.sched.Suspend(c.config.InteractionSuspend)
	c.Draw()

	if covering, ok := coveringRange(data, r, c.now()); ok {
		c.logger.Debug("display range outside data range", "data", data.String(), "covering", covering.String())
		go c.update(ctx, &covering, &r)
	}
}

// coveringRange 计算同时覆盖数据区间和显示区间的新数据区间
// 显示区间已被覆盖时 ok 为 false；实时区间保持跟随当前时间，超出当前时间的部分不拉取
func coveringRange(data, display core.TimeRange, now time.Time) (core.TimeRange, bool) {
	df, dt := data.Resolve(now)
	from, to := display.Resolve(now)
	if nowSec := core.UnixSeconds(now); to > nowSec {
		to = nowSec
	}
	if data.IsLive() && to > dt {
		to = dt
	}

	if from >= df && to <= dt {
		return core.TimeRange{}, false
	}
	if from < df {
		df = from
	}

	if data.IsLive() {
		// 起点相对于上界
		return core.TimeRange{From: df - dt, To: data.To}, true
	}
	if to > dt {
		dt = to
	}
	return core.TimeRange{From: df, To: dt}, true
}

// ForceUpdate 立即请求一次更新，进行中的更新会与之合并
func (c *Controller) ForceUpdate() {
	c.sched.Update()
}

// SuspendUpdate 暂停自动刷新
func (c *Controller) SuspendUpdate(d time.Duration) {
	c.sched.Suspend(d)
}

// Reconfigure 重新配置面板并补齐新出现的通道
func (c *Controller) Reconfigure() {
	if err := c.layout.Configure(c); err != nil {
		c.logger.Error("reconfigure failed", "err", err)
		return
	}
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	go c.Update(ctx, nil)
}

// Popout 单独显示一个面板
func (c *Controller) Popout(p core.Panel) {
	c.layout.Popout(p)
}

// Publish 向服务端写入控制值
// currentdata 主题在推送连接可用时直接发送，否则走控制接口并强制更新
func (c *Controller) Publish(ctx context.Context, topic string, message any) error {
	if topic == TopicCurrentData && c.stream != nil && c.stream.Connected() {
		err := c.stream.Send(message)
		if err == nil {
			return nil
		}
		c.logger.Warn("stream send failed, falling back to control", "err", err)
	}

	err := c.fetcher.Control(ctx, topic, message)
	c.ForceUpdate()
	return err
}

// DataRange 返回当前数据区间
func (c *Controller) DataRange() core.TimeRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataRange
}

// DisplayRange 返回当前显示区间，未设置时为 nil
func (c *Controller) DisplayRange() *core.TimeRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.displayRange == nil {
		return nil
	}
	r := *c.displayRange
	return &r
}

// Status 返回最近一次更新的状态
func (c *Controller) Status() core.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Packet 返回当前数据包的只读快照
func (c *Controller) Packet() *core.DataPacket {
	return c.store.Current().Snapshot()
}

// NextUpdate 返回距离下一次自动更新的时间
func (c *Controller) NextUpdate() (time.Duration, bool) {
	return c.sched.NextUpdate()
}

// SchedulerState 返回调度器状态
func (c *Controller) SchedulerState() scheduler.State {
	return c.sched.State()
}

// StreamState 返回推送连接状态，未启用推送时为 Disconnected
func (c *Controller) StreamState() streaming.State {
	if c.stream == nil {
		return streaming.StateDisconnected
	}
	return c.stream.State()
}
