// Package streaming 配置定义
package streaming

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config 推送连接的配置结构
type Config struct {
	BaseURL          string        // 服务端HTTP地址，推送地址由它推导
	Path             string        // 推送订阅路径
	HandshakeTimeout time.Duration // 握手超时
	WriteTimeout     time.Duration // 单次写入超时
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "http://localhost:18881",
		Path:             "/ws/subscribe/currentdata",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("推送订阅路径不能为空")
	}

	if c.HandshakeTimeout <= 0 {
		return errors.New("握手超时必须大于0")
	}

	if c.WriteTimeout <= 0 {
		return errors.New("写入超时必须大于0")
	}

	return nil
}

// StreamURL 由服务端HTTP地址推导推送地址，https 对应 wss
func StreamURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("服务端地址格式错误: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("不支持的协议: %q", u.Scheme)
	}
	u.Path = path
	u.RawQuery = ""
	return u.String(), nil
}
