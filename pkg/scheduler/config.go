// Package scheduler 配置定义
package scheduler

import (
	"errors"
	"time"
)

// Config 调度器的配置结构
type Config struct {
	Interval   time.Duration // 自动刷新间隔，<= 0 表示只手动刷新
	ResetDelay time.Duration // 全量重置延迟，<= 0 表示不启用
	Beat       time.Duration // 节拍间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Interval:   60 * time.Second, // 默认每分钟刷新
		ResetDelay: 0,                // 默认不重置
		Beat:       time.Second,      // 每秒一个节拍
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.Beat <= 0 {
		return errors.New("节拍间隔必须大于0")
	}

	if c.ResetDelay < 0 {
		return errors.New("重置延迟不能为负数")
	}

	return nil
}

// Option 配置选项函数类型
type Option func(*Config)

// WithInterval 设置自动刷新间隔
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithResetDelay 设置全量重置延迟
func WithResetDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.ResetDelay = delay
	}
}

// WithBeat 设置节拍间隔
func WithBeat(beat time.Duration) Option {
	return func(c *Config) {
		c.Beat = beat
	}
}

// NewConfigWithOptions 使用选项模式创建配置
func NewConfigWithOptions(opts ...Option) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}
