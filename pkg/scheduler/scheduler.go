// Package scheduler 按节拍驱动周期性更新
// 支持暂停窗口和全量重置期限，并把更新进行中到达的请求合并为一次后续更新
package scheduler

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/metrics"
	"github.com/charmbracelet/log"
)

// State 调度器状态
type State int

const (
	StateIdle      State = iota // 从未更新
	StateWaiting                // 倒计时中
	StateUpdating               // 更新进行中
	StateSuspended              // 倒计时被暂停
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateUpdating:
		return "updating"
	case StateSuspended:
		return "suspended"
	}
	return "unknown"
}

// Cycle 更新周期状态：空闲，或进行中并累计了 Pending 个待合并请求
type Cycle struct {
	InFlight bool
	Pending  int
}

// UpdateFunc 更新动作，返回本次更新的状态
type UpdateFunc func(ctx context.Context) core.Status

const manualOnly = time.Duration(math.MaxInt64)

// Scheduler 更新调度器，只持有时间状态，不持有数据
type Scheduler struct {
	config   *Config
	update   UpdateFunc
	onStatus func(core.Status)
	onReset  func()
	logger   *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu           sync.Mutex
	cycle        Cycle
	lastUpdate   time.Time
	completed    bool // 至少完成过一次更新
	suspendUntil time.Time
	resetAt      time.Time
	lastStatus   core.Status
	stopped      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// HandlerOption 调度器回调和依赖选项
type HandlerOption func(*Scheduler)

// WithStatusHandler 设置每次更新完成后的状态回调
func WithStatusHandler(fn func(core.Status)) HandlerOption {
	return func(s *Scheduler) {
		s.onStatus = fn
	}
}

// WithResetHandler 设置全量重置回调，回调不能阻塞也不能调用 Stop
func WithResetHandler(fn func()) HandlerOption {
	return func(s *Scheduler) {
		s.onReset = fn
	}
}

// WithClock 设置时钟（测试使用）
func WithClock(now func() time.Time) HandlerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger 设置日志
func WithLogger(logger *log.Logger) HandlerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New 创建调度器
func New(config *Config, update UpdateFunc, opts ...HandlerOption) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		config: config,
		update: update,
		logger: log.Default(),
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start 启动节拍，第一个节拍立即执行，保证启动时至少更新一次
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
}

// Stop 停止节拍并等待进行中的更新结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// loop 节拍循环
func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Beat)
	defer ticker.Stop()

	s.tick(s.now())
	for {
		select {
		case <-ticker.C:
			s.tick(s.now())
		case <-s.ctx.Done():
			return
		}
	}
}

// tick 处理一个节拍
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	reset := !s.resetAt.IsZero() && !now.Before(s.resetAt)
	if reset {
		s.resetAt = time.Time{}
	}
	togo := s.toGoLocked(now)
	s.mu.Unlock()

	if reset {
		s.logger.Info("reset deadline reached")
		if s.onReset != nil {
			s.onReset()
		}
		return
	}

	if togo <= 0 {
		s.Update()
	}
}

// toGoLocked 计算距离下一次更新的时间
func (s *Scheduler) toGoLocked(now time.Time) time.Duration {
	// 有待合并的请求或还没有完成过更新时立即更新
	// 首次更新进行中的节拍因此都会累加待合并计数
	if s.cycle.Pending > 0 || !s.completed {
		return 0
	}

	togo := manualOnly
	if s.config.Interval > 0 {
		togo = s.config.Interval - now.Sub(s.lastUpdate)
		if togo < 0 {
			togo = 0
		}
	}
	if suspend := s.suspendUntil.Sub(now); suspend > togo {
		togo = suspend
	}
	return togo
}

// Update 请求一次更新
// 更新进行中时只累加待合并计数并返回 false，下一个节拍会执行一次后续更新
func (s *Scheduler) Update() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if s.cycle.InFlight {
		s.cycle.Pending++
		s.mu.Unlock()
		s.metrics.IncCoalesced()
		return false
	}
	s.cycle = Cycle{InFlight: true}
	s.lastUpdate = s.now()
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)
	return true
}

// run 执行更新动作
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	status := s.update(ctx)

	s.mu.Lock()
	s.cycle.InFlight = false
	s.completed = true
	s.lastStatus = status
	s.mu.Unlock()

	if !status.OK() {
		s.logger.Warn("update failed", "status", status.Code, "text", status.Text)
	}
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Suspend 在一段时间内暂停自动刷新（不影响手动更新）
func (s *Scheduler) Suspend(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspendUntil = s.now().Add(d)
}

// ScheduleReset 设置全量重置期限，未配置重置延迟时返回 false
func (s *Scheduler) ScheduleReset() bool {
	if s.config.ResetDelay <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetAt = s.now().Add(s.config.ResetDelay)
	s.logger.Debug("reset scheduled", "at", s.resetAt)
	return true
}

// NextUpdate 返回距离下一次自动更新的时间，只手动刷新时 ok 为 false
func (s *Scheduler) NextUpdate() (togo time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	togo = s.toGoLocked(s.now())
	return togo, togo != manualOnly
}

// State 返回当前状态
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.cycle.InFlight:
		return StateUpdating
	case s.lastUpdate.IsZero():
		return StateIdle
	case s.suspendUntil.After(s.now()):
		return StateSuspended
	default:
		return StateWaiting
	}
}

// Cycle 返回当前更新周期状态
func (s *Scheduler) Cycle() Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycle
}

// LastStatus 返回最近一次更新的状态
func (s *Scheduler) LastStatus() core.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}
