// Package dashboard 配置定义
package dashboard

import (
	"errors"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
)

// Config 控制器的配置结构
type Config struct {
	Range              core.TimeRange // 初始数据区间
	InteractionSuspend time.Duration  // 交互缩放/平移后暂停自动刷新的时长
	EnableStreaming    bool           // 是否启用实时推送
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Range:              core.TimeRange{From: -3600, To: 0}, // 最近一小时
		InteractionSuspend: 30 * time.Second,
		EnableStreaming:    true,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if err := ValidateRange(c.Range); err != nil {
		return err
	}

	if c.InteractionSuspend < 0 {
		return errors.New("交互暂停时长不能为负数")
	}

	return nil
}

// ValidateRange 验证数据区间
func ValidateRange(r core.TimeRange) error {
	if r.From == 0 {
		return errors.New("区间起点不能为0")
	}
	if r.From > 0 && r.To > 0 && r.To <= r.From {
		return errors.New("区间终点必须晚于起点")
	}
	return nil
}

// Option 配置选项函数类型
type Option func(*Config)

// WithRange 设置初始数据区间
func WithRange(r core.TimeRange) Option {
	return func(c *Config) {
		c.Range = r
	}
}

// WithInteractionSuspend 设置交互暂停时长
func WithInteractionSuspend(d time.Duration) Option {
	return func(c *Config) {
		c.InteractionSuspend = d
	}
}

// WithStreaming 设置是否启用实时推送
func WithStreaming(enabled bool) Option {
	return func(c *Config) {
		c.EnableStreaming = enabled
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
