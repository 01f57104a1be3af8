package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/dashboard"
	"github.com/Kevin-Rudy/godash/pkg/fetcher"
	"github.com/Kevin-Rudy/godash/pkg/metrics"
	"github.com/Kevin-Rudy/godash/pkg/tui"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// runApp 主要应用逻辑处理函数
func runApp(c *cli.Context) error {
	// 验证命令行参数
	path := c.Args().First()
	if path == "" {
		return cli.Exit("错误: 必须指定仪表盘文件\n使用方法: godash <仪表盘文件.yaml>", 1)
	}

	// 构建配置
	appConfig, err := loadAppConfig(c, path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger, closeLog, err := setupLogger(appConfig.LogFile, appConfig.LogLevel)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法打开日志: %v", err), 1)
	}
	defer closeLog()

	// 指标在重建之间共享
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	if appConfig.MetricsAddr != "" {
		stopMetrics := serveMetrics(appConfig.MetricsAddr, registry, logger)
		defer stopMetrics()
	}

	// 显示运行配置
	printRunningConfig(appConfig)
	printUsageInstructions()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	for {
		reset, err := runDashboard(ctx, appConfig, logger, m)
		if err != nil {
			return cli.Exit(fmt.Sprintf("仪表盘运行出错: %v", err), 1)
		}
		if !reset {
			break
		}

		// 重置期限到达：重新读取文件并重建整个仪表盘
		logger.Info("rebuilding dashboard", "path", path)
		appConfig, err = loadAppConfig(c, path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	fmt.Println("\n程序已退出")
	return nil
}

// runDashboard 创建并运行一次仪表盘，阻塞到用户退出或重置期限到达
func runDashboard(ctx context.Context, appConfig *AppConfig, logger *log.Logger, m *metrics.Metrics) (bool, error) {
	tuiInstance, err := tui.NewTUI(appConfig.Panels, appConfig.TUIConfig)
	if err != nil {
		return false, fmt.Errorf("无法创建界面: %w", err)
	}

	f, err := fetcher.New(appConfig.FetcherConfig, logger.WithPrefix("fetcher"), m)
	if err != nil {
		return false, fmt.Errorf("无法创建数据拉取器: %w", err)
	}

	controller, err := dashboard.New(appConfig.DashboardConfig, tuiInstance, dashboard.Deps{
		Fetcher:   f,
		Scheduler: appConfig.SchedulerConfig,
		Streaming: appConfig.StreamingConfig,
	},
		dashboard.WithLogger(logger.WithPrefix("dashboard")),
		dashboard.WithMetrics(m),
		dashboard.WithStatusHandler(func(status core.Status) {
			logger.Debug("update finished", "status", status.String())
		}),
	)
	if err != nil {
		return false, fmt.Errorf("无法创建控制器: %w", err)
	}
	tuiInstance.SetStatusSource(controller)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		return false, err
	}
	defer controller.Stop()

	var reset atomic.Bool
	go func() {
		select {
		case <-controller.ResetRequested():
			logger.Info("reset deadline reached", "err", dashboard.ErrReset)
			reset.Store(true)
			tuiInstance.Stop()
		case <-ctx.Done():
		}
	}()

	// 启动界面，这会阻塞直到用户退出
	if err := tuiInstance.Run(); err != nil {
		return false, err
	}
	return reset.Load(), nil
}

// runFetch 拉取一次仪表盘需要的全部通道并输出数据包JSON
func runFetch(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("错误: 必须指定仪表盘文件\n使用方法: godash fetch <仪表盘文件.yaml>", 1)
	}

	appConfig, err := loadAppConfig(c, path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: AppName})
	if level, err := log.ParseLevel(appConfig.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	f, err := fetcher.New(appConfig.FetcherConfig, logger, nil)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var channels []string
	seen := make(map[string]bool)
	for _, p := range appConfig.Panels {
		for _, name := range p.Channels {
			if !seen[name] {
				seen[name] = true
				channels = append(channels, name)
			}
		}
	}

	r := appConfig.DashboardConfig.Range
	packet := core.NewDataPacket(r, 1)
	packet.BeginMerge()
	status := f.Fetch(c.Context, f.Plan(channels, r, time.Now()), func(batch fetcher.Batch) {
		packet.Merge(batch.Data, batch.Last)
	})

	out, err := json.MarshalIndent(packet, "", "  ")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Println(string(out))

	if !status.OK() {
		return cli.Exit(status.String(), 1)
	}
	return nil
}

// printRunningConfig 打印运行配置信息
func printRunningConfig(config *AppConfig) {
	fmt.Printf("仪表盘文件: %s\n", config.Path)
	fmt.Printf("数据服务: %s\n", config.FetcherConfig.BaseURL)
	fmt.Printf("数据区间: %s\n", config.DashboardConfig.Range)
	if config.SchedulerConfig.Interval > 0 {
		fmt.Printf("刷新周期: %v\n", config.SchedulerConfig.Interval)
	} else {
		fmt.Println("刷新周期: 手动")
	}
	fmt.Printf("实时推送: %v\n", config.DashboardConfig.EnableStreaming)
	fmt.Printf("面板数量: %d\n", len(config.Panels))
	fmt.Printf("日志文件: %s\n", config.LogFile)
}
