package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"
)

// createCliApp 创建CLI应用实例
func createCliApp() *cli.App {
	app := &cli.App{
		Name:    AppName,
		Version: AppVersion,
		Usage:   AppDesc,
		Flags:   createCliFlags(),
		Action:  runApp,
		Before: func(c *cli.Context) error {
			// 子命令不显示启动信息
			if c.Args().First() == "version" || c.Args().First() == "fetch" {
				return nil
			}
			fmt.Printf("正在启动 %s v%s...\n", AppName, AppVersion)
			return nil
		},
		ArgsUsage: "<仪表盘文件.yaml>",
	}

	// 添加子命令
	app.Commands = createCommands()

	return app
}

// createCliFlags 创建CLI参数定义，设置后覆盖仪表盘文件中的值
func createCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "数据服务地址 (例如: http://localhost:18881)",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"n"},
			Usage:   "自动刷新周期，0表示只手动刷新 (例如: 30s, 5m)",
		},
		&cli.DurationFlag{
			Name:  "reset-delay",
			Usage: "运行指定时长后重建整个仪表盘，0表示不重建 (例如: 12h)",
		},
		&cli.DurationFlag{
			Name:  "suspend",
			Usage: "平移/缩放后暂停自动刷新的时长",
		},
		&cli.BoolFlag{
			Name:  "no-stream",
			Usage: "禁用实时推送，只轮询",
		},
		&cli.IntFlag{
			Name:  "retry-max",
			Usage: "单个数据请求的重试次数",
		},
		&cli.Float64Flag{
			Name:  "from",
			Usage: "数据区间起点：负数为相对长度（秒），正数为Unix时间",
		},
		&cli.Float64Flag{
			Name:  "to",
			Usage: "数据区间终点：0或负数为相对当前时间，正数为Unix时间",
		},
		&cli.IntFlag{
			Name:  "columns",
			Usage: "面板网格列数",
		},
		&cli.DurationFlag{
			Name:    "refresh-rate",
			Aliases: []string{"r"},
			Value:   time.Second,
			Usage:   "界面刷新频率 (例如: 500ms, 1s)",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Value: "godash.log",
			Usage: "日志文件（界面占用终端）",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "日志级别 (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Prometheus指标监听地址 (例如: :9100)",
		},
	}
}

// createCommands 创建子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "显示详细版本信息",
			Action: func(c *cli.Context) error {
				fmt.Printf("%s v%s\n", AppName, AppVersion)
				fmt.Printf("描述: %s\n", AppDesc)
				fmt.Printf("系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
				fmt.Printf("运行时: %s\n", runtime.Version())
				return nil
			},
		},
		{
			Name:      "fetch",
			Usage:     "按仪表盘文件拉取一次数据并输出JSON",
			ArgsUsage: "<仪表盘文件.yaml>",
			Flags:     createCliFlags(),
			Action:    runFetch,
		},
	}
}
