// Package tui 选项模式支持
package tui

import (
	"time"
)

// Option TUI配置选项函数类型
type Option func(*Config)

// WithTitle 设置仪表盘标题
func WithTitle(title string) Option {
	return func(c *Config) {
		c.Title = title
	}
}

// WithColumns 设置网格列数
func WithColumns(columns int) Option {
	return func(c *Config) {
		c.Columns = columns
	}
}

// WithRefreshInterval 设置刷新间隔
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.RefreshInterval = interval
	}
}

// WithChartSize 设置图表最小尺寸
func WithChartSize(width, height int) Option {
	return func(c *Config) {
		c.MinChartWidth = width
		c.MinChartHeight = height
	}
}

// WithValueBufferRatio 设置值缓冲比例
func WithValueBufferRatio(ratio float64) Option {
	return func(c *Config) {
		c.ValueBufferRatio = ratio
	}
}

// WithNavigation 设置平移比例和缩放倍数
func WithNavigation(panFraction, zoomFactor float64) Option {
	return func(c *Config) {
		c.PanFraction = panFraction
		c.ZoomFactor = zoomFactor
	}
}

// NewConfigWithOptions 使用选项模式创建TUI配置
func NewConfigWithOptions(opts ...Option) *Config {
	config := DefaultConfig()

	// 应用所有选项
	for _, opt := range opts {
		opt(config)
	}

	return config
}
