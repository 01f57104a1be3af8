// Package streaming 维护尽力而为的实时推送连接
// 连接断开后不自动重连，由刷新管线在确认服务端可达时重新建立
package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/metrics"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrNotConnected 推送连接未建立
var ErrNotConnected = errors.New("推送连接未建立")

// State 推送连接状态
type State int

const (
	StateDisconnected State = iota // 未连接
	StateConnecting                // 连接中
	StateConnected                 // 已连接
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// MessageHandler 处理一条推送消息
type MessageHandler func([]byte)

// Client 推送连接客户端
type Client struct {
	config    *Config
	dialer    *websocket.Dialer
	onMessage MessageHandler
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// Option 客户端选项
type Option func(*Client)

// WithLogger 设置日志
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New 创建推送客户端
func New(config *Config, onMessage MessageHandler, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		config:    config,
		dialer:    &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
		onMessage: onMessage,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State 返回当前连接状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected 是否已连接
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Connect 建立推送连接，已连接或连接中时直接返回
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	streamURL, err := StreamURL(c.config.BaseURL, c.config.Path)
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Warn("streaming unavailable", "error", err)
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Warn("streaming connect failed", "url", streamURL, "error", err)
		return fmt.Errorf("连接推送服务失败: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()
	c.metrics.SetStreamConnected(true)
	c.logger.Info("streaming connected", "url", streamURL)

	c.wg.Add(1)
	go c.readPump(conn)
	return nil
}

// readPump 读取推送消息直到连接关闭
func (c *Client) readPump(conn *websocket.Conn) {
	defer c.wg.Done()
	defer c.drop(conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("streaming connection lost", "error", err)
			}
			return
		}
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// drop 清除连接引用，使刷新管线可以重新建立连接
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	owned := c.conn == conn
	if owned {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	conn.Close()
	if owned {
		c.metrics.SetStreamConnected(false)
		c.logger.Debug("streaming disconnected")
	}
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Send 通过推送连接写入一个JSON消息
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		c.drop(conn)
		return fmt.Errorf("推送写入失败: %w", err)
	}
	return nil
}

// Close 关闭连接并等待读取协程退出
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
		c.metrics.SetStreamConnected(false)
	}
	c.wg.Wait()
}
