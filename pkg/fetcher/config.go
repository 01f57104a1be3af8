// Package fetcher 配置定义
package fetcher

import (
	"errors"
	"net/url"
	"time"
)

// Config 数据请求的配置结构
type Config struct {
	BaseURL           string        // 服务端地址，例如 http://localhost:18881
	ResampleThreshold float64       // 区间长度超过该值（秒）时请求服务端重采样
	ResamplePoints    float64       // 重采样的目标点数
	Reducer           string        // 重采样归约函数
	SplitThreshold    float64       // 区间长度不小于该值（秒）时每个通道单独请求
	MaxParallel       int           // 同时进行的子请求上限
	Timeout           time.Duration // 单次HTTP请求超时
	RetryMax          int           // 传输层重试次数，更新周期本身不重试
	RetryWaitMin      time.Duration // 重试最小等待
	RetryWaitMax      time.Duration // 重试最大等待
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://localhost:18881",
		ResampleThreshold: 7200,      // 2小时
		ResamplePoints:    600,       // 约600个点
		Reducer:           "last",    // 取区间内最后一个值
		SplitThreshold:    5 * 86500, // 约5天
		MaxParallel:       4,
		Timeout:           60 * time.Second,
		RetryMax:          0,
		RetryWaitMin:      500 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("服务端地址不能为空")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.New("服务端地址格式错误: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("服务端地址必须以http或https开头")
	}

	if c.ResampleThreshold <= 0 {
		return errors.New("重采样阈值必须大于0")
	}

	if c.ResamplePoints <= 0 {
		return errors.New("重采样点数必须大于0")
	}

	if c.Reducer == "" {
		return errors.New("重采样归约函数不能为空")
	}

	if c.SplitThreshold <= 0 {
		return errors.New("拆分阈值必须大于0")
	}

	if c.MaxParallel <= 0 {
		return errors.New("并发请求上限必须大于0")
	}

	if c.Timeout < 0 {
		return errors.New("请求超时不能为负数")
	}

	if c.RetryMax < 0 {
		return errors.New("重试次数不能为负数")
	}

	return nil
}

// Option 配置选项函数类型
type Option func(*Config)

// WithBaseURL 设置服务端地址
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithTimeout 设置请求超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetryMax 设置传输层重试次数
func WithRetryMax(retryMax int) Option {
	return func(c *Config) {
		c.RetryMax = retryMax
	}
}

// WithMaxParallel 设置并发子请求上限
func WithMaxParallel(n int) Option {
	return func(c *Config) {
		c.MaxParallel = n
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
