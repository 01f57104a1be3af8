// Package fetcher HTTP客户端构建
package fetcher

import (
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
)

// leveledLogger 将 charmbracelet/log 适配为 retryablehttp.LeveledLogger
type leveledLogger struct {
	logger *log.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// newRetryClient 按配置创建HTTP客户端
// 重试耗尽后原样返回最后的响应，使HTTP错误状态不被转换成传输失败
func newRetryClient(config *Config, logger *log.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = leveledLogger{logger: logger}
	client.RetryMax = config.RetryMax
	client.RetryWaitMin = config.RetryWaitMin
	client.RetryWaitMax = config.RetryWaitMax
	client.HTTPClient.Timeout = config.Timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}
