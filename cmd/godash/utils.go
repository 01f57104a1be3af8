package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 程序信息常量
const (
	AppName    = "godash"
	AppVersion = "0.1.0"
	AppDesc    = "按时间区间刷新的终端数据仪表盘"
)

// setupLogger 创建写入日志文件的日志器，界面运行时终端不可用于日志
func setupLogger(path, level string) (*log.Logger, func(), error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = file
		closeFn = func() { _ = file.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix:          AppName,
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	log.SetDefault(logger)
	return logger, closeFn, nil
}

// serveMetrics 启动Prometheus指标服务，返回停止函数
func serveMetrics(addr string, registry *prometheus.Registry, logger *log.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	logger.Info("metrics server listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// printUsageInstructions 显示TUI操作说明
func printUsageInstructions() {
	fmt.Println("操作说明:")
	fmt.Println("  r           - 立即刷新")
	fmt.Println("  ←/→ 方向键  - 平移显示区间")
	fmt.Println("  +/-         - 缩放显示区间")
	fmt.Println("  Tab / Enter - 切换面板 / 全屏显示面板")
	fmt.Println("  s / Esc     - 面板设置 / 返回")
	fmt.Println("  q 或 Ctrl+C - 退出程序")
	fmt.Println("========================================")
}
