// Package fetcher 负责为缺失的通道发出数据请求
// 根据区间长度决定请求数量和重采样参数，并按完成顺序逐批交付结果
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/metrics"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

// Batch 一个子请求的结果
type Batch struct {
	Request Request
	Data    map[string]*core.ChannelSeries // 失败时为nil
	Status  core.Status
	Last    bool // 是否为本轮最后完成的子请求
}

// Fetcher 数据请求协调器
type Fetcher struct {
	config  *Config
	client  *retryablehttp.Client
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New 创建请求协调器
func New(config *Config, logger *log.Logger, m *metrics.Metrics) (*Fetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		config:  config,
		client:  newRetryClient(config, logger),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}, nil
}

// BaseURL 返回服务端地址
func (f *Fetcher) BaseURL() string {
	return f.config.BaseURL
}

// Fetch 并发执行请求，每个子请求完成后调用onBatch
// onBatch 调用是串行的，顺序为完成顺序，最后完成的一批 Last 为 true
// 返回值为第一个失败的状态；全部成功时为最后一个成功状态
func (f *Fetcher) Fetch(ctx context.Context, reqs []Request, onBatch func(Batch)) core.Status {
	if len(reqs) == 0 {
		return core.StatusOK(f.now())
	}

	var (
		mu        sync.Mutex
		remaining = len(reqs)
		result    core.Status
		failed    bool
	)

	g := new(errgroup.Group)
	g.SetLimit(f.config.MaxParallel)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			data, status := f.get(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			remaining--
			if !status.OK() {
				if !failed {
					result = status
					failed = true
				}
			} else if !failed {
				result = status
			}
			onBatch(Batch{Request: req, Data: data, Status: status, Last: remaining == 0})
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// get 执行一次数据请求
func (f *Fetcher) get(ctx context.Context, req Request) (map[string]*core.ChannelSeries, core.Status) {
	path := req.Path()
	start := time.Now()

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.config.BaseURL+path, nil)
	if err != nil {
		return nil, transportFailure(err, f.now())
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.metrics.ObserveFetch(core.CodeTransportFailure, time.Since(start))
		f.logger.Warn("data request failed", "path", path, "error", err)
		return nil, transportFailure(err, f.now())
	}
	defer resp.Body.Close()
	f.metrics.ObserveFetch(resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := core.Status{Code: resp.StatusCode, Text: statusText(resp), Time: f.now()}
		f.logger.Warn("data request returned error status", "path", path, "status", resp.StatusCode)
		return nil, status
	}

	var data map[string]*core.ChannelSeries
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		f.logger.Warn("invalid data response", "path", path, "error", err)
		return nil, transportFailure(fmt.Errorf("解析响应失败: %w", err), f.now())
	}
	for name, series := range data {
		if series == nil {
			delete(data, name)
		}
	}

	f.logger.Debug("data request done", "path", path, "channels", len(data), "elapsed", time.Since(start))
	return data, core.Status{Code: resp.StatusCode, Text: statusText(resp), Time: f.now()}
}

// controlReply 控制接口的响应
type controlReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Control 通过HTTP向控制接口写入数值
// topic 为空或 control 时写入 /api/control，否则写入 /api/control/{topic}
func (f *Fetcher) Control(ctx context.Context, topic string, message any) error {
	path := "/api/control"
	if topic != "" && topic != "control" {
		path += "/" + topic
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("编码控制消息失败: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, f.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("控制请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("控制请求失败: %d %s", resp.StatusCode, statusText(resp))
	}

	var reply controlReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		// 响应体可以为空
		return nil
	}
	if reply.Status == "error" {
		if reply.Message == "" {
			reply.Message = "unknown error"
		}
		return errors.New(reply.Message)
	}
	return nil
}

func transportFailure(err error, now time.Time) core.Status {
	return core.Status{Code: core.CodeTransportFailure, Text: err.Error(), Time: now}
}

// statusText 从 "500 Internal Server Error" 中取出描述部分
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
