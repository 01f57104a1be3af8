// Package fetcher 请求拆分与重采样规则
package fetcher

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
)

// Request 一次数据请求的参数
type Request struct {
	Channels []string
	Length   float64 // 区间长度（秒）
	To       float64 // 区间上界，<= 0 表示相对当前时间
	Resample float64 // 重采样间隔（秒），0 表示不重采样
	Reducer  string
}

// Path 返回请求路径（含查询参数）
// 路径中只带 length 和 to，服务端按相同规则解析相对区间
func (r Request) Path() string {
	names := make([]string, len(r.Channels))
	for i, name := range r.Channels {
		names[i] = url.PathEscape(name)
	}

	var b strings.Builder
	b.WriteString("/api/data/")
	b.WriteString(strings.Join(names, ","))
	b.WriteString("?length=")
	b.WriteString(formatNumber(r.Length))
	b.WriteString("&to=")
	b.WriteString(formatNumber(r.To))
	if r.Resample > 0 {
		b.WriteString("&resample=")
		b.WriteString(formatNumber(r.Resample))
		b.WriteString("&reducer=")
		b.WriteString(url.QueryEscape(r.Reducer))
	}
	return b.String()
}

// formatNumber 输出最短的十进制表示
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Plan 计算缺失通道需要发出的请求
// 长区间请求服务端重采样；超长区间每个通道单独请求，避免单个巨大响应
func (f *Fetcher) Plan(channels []string, r core.TimeRange, now time.Time) []Request {
	if len(channels) == 0 {
		return nil
	}

	length := r.Length(now)
	base := Request{Length: length, To: r.To}
	if length > f.config.ResampleThreshold {
		base.Resample = length / f.config.ResamplePoints
		base.Reducer = f.config.Reducer
	}

	if length < f.config.SplitThreshold {
		req := base
		req.Channels = append([]string(nil), channels...)
		return []Request{req}
	}

	reqs := make([]Request, 0, len(channels))
	for _, name := range channels {
		req := base
		req.Channels = []string{name}
		reqs = append(reqs, req)
	}
	return reqs
}
