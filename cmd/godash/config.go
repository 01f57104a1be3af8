package main

import (
	"fmt"

	"github.com/Kevin-Rudy/godash/pkg/config"
	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/dashboard"
	"github.com/Kevin-Rudy/godash/pkg/fetcher"
	"github.com/Kevin-Rudy/godash/pkg/scheduler"
	"github.com/Kevin-Rudy/godash/pkg/streaming"
	"github.com/Kevin-Rudy/godash/pkg/tui"
	"github.com/urfave/cli/v2"
)

// AppConfig 应用层配置聚合
type AppConfig struct {
	Path            string
	Panels          []core.PanelConfig
	FetcherConfig   *fetcher.Config
	SchedulerConfig *scheduler.Config
	StreamingConfig *streaming.Config
	DashboardConfig *dashboard.Config
	TUIConfig       *tui.Config
	LogFile         string
	LogLevel        string
	MetricsAddr     string
}

// buildConfigFromCLI 以仪表盘文件为基础，用命令行参数覆盖
func buildConfigFromCLI(c *cli.Context, path string, d *config.Dashboard) *AppConfig {
	// 构建 fetcher 配置
	fetcherConfig := fetcher.NewConfigWithOptions(
		fetcher.WithBaseURL(d.Server),
		fetcher.WithRetryMax(d.RetryMax),
	)
	if c.IsSet("server") {
		fetcherConfig.BaseURL = c.String("server")
	}
	if c.IsSet("retry-max") {
		fetcherConfig.RetryMax = c.Int("retry-max")
	}

	// 构建 scheduler 配置
	schedulerConfig := scheduler.NewConfigWithOptions(
		scheduler.WithInterval(d.Interval()),
		scheduler.WithResetDelay(d.ResetDelay),
	)
	if c.IsSet("interval") {
		schedulerConfig.Interval = c.Duration("interval")
	}
	if c.IsSet("reset-delay") {
		schedulerConfig.ResetDelay = c.Duration("reset-delay")
	}

	// 构建 streaming 配置，推送地址由数据服务地址推导
	streamingConfig := streaming.DefaultConfig()
	streamingConfig.BaseURL = fetcherConfig.BaseURL

	// 构建控制器配置
	r := d.TimeRange()
	if c.IsSet("from") {
		r.From = c.Float64("from")
	}
	if c.IsSet("to") {
		r.To = c.Float64("to")
	}
	dashboardConfig := dashboard.NewConfigWithOptions(
		dashboard.WithRange(r),
		dashboard.WithInteractionSuspend(d.Suspend),
		dashboard.WithStreaming(d.StreamEnabled() && !c.Bool("no-stream")),
	)
	if c.IsSet("suspend") {
		dashboardConfig.InteractionSuspend = c.Duration("suspend")
	}

	// 构建 TUI 配置
	tuiConfig := tui.NewConfigWithOptions(
		tui.WithTitle(d.Title),
		tui.WithColumns(d.Layout.Columns),
		tui.WithRefreshInterval(c.Duration("refresh-rate")),
	)
	if c.IsSet("columns") {
		tuiConfig.Columns = c.Int("columns")
	}

	metricsAddr := d.MetricsAddr
	if c.IsSet("metrics-addr") {
		metricsAddr = c.String("metrics-addr")
	}

	return &AppConfig{
		Path:            path,
		Panels:          d.Panels,
		FetcherConfig:   fetcherConfig,
		SchedulerConfig: schedulerConfig,
		StreamingConfig: streamingConfig,
		DashboardConfig: dashboardConfig,
		TUIConfig:       tuiConfig,
		LogFile:         c.String("log-file"),
		LogLevel:        c.String("log-level"),
		MetricsAddr:     metricsAddr,
	}
}

// loadAppConfig 读取仪表盘文件并构建配置
func loadAppConfig(c *cli.Context, path string) (*AppConfig, error) {
	d, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("读取仪表盘文件失败: %w", err)
	}

	appConfig := buildConfigFromCLI(c, path, d)
	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return appConfig, nil
}

// validateConfig 验证配置的合理性
func validateConfig(config *AppConfig) error {
	if err := config.FetcherConfig.Validate(); err != nil {
		return fmt.Errorf("fetcher配置错误: %v", err)
	}

	if err := config.SchedulerConfig.Validate(); err != nil {
		return fmt.Errorf("scheduler配置错误: %v", err)
	}

	if err := config.StreamingConfig.Validate(); err != nil {
		return fmt.Errorf("streaming配置错误: %v", err)
	}

	if err := config.DashboardConfig.Validate(); err != nil {
		return fmt.Errorf("dashboard配置错误: %v", err)
	}

	if err := config.TUIConfig.Validate(); err != nil {
		return fmt.Errorf("tui配置错误: %v", err)
	}

	return nil
}
