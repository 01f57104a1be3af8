// Package config 读取仪表盘描述文件
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/Kevin-Rudy/godash/pkg/dashboard"
	"gopkg.in/yaml.v3"
)

// Dashboard 仪表盘描述
type Dashboard struct {
	Title          string             `yaml:"title"`
	Server         string             `yaml:"server"`
	Range          RangeConfig        `yaml:"range"`
	UpdateInterval *time.Duration     `yaml:"update_interval"` // 0 表示只手动刷新
	ResetDelay     time.Duration      `yaml:"reset_delay"`
	Suspend        time.Duration      `yaml:"suspend"`
	Stream         *bool              `yaml:"stream"`
	RetryMax       int                `yaml:"retry_max"`
	MetricsAddr    string             `yaml:"metrics_addr"`
	Layout         LayoutConfig       `yaml:"layout"`
	Panels         []core.PanelConfig `yaml:"panels"`
}

// RangeConfig 数据区间，语义同 core.TimeRange
type RangeConfig struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// LayoutConfig 网格布局
type LayoutConfig struct {
	Columns int `yaml:"columns"`
}

// Load 读取并校验仪表盘描述文件
func Load(path string) (*Dashboard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse 解析仪表盘描述
func Parse(raw []byte) (*Dashboard, error) {
	var d Dashboard
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("解析仪表盘文件失败: %w", err)
	}

	d.applyDefaults()
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dashboard) applyDefaults() {
	if d.Title == "" {
		d.Title = "godash"
	}
	if d.Server == "" {
		d.Server = "http://localhost:18881"
	}
	if d.Range.From == 0 {
		d.Range.From = -3600
	}
	if d.UpdateInterval == nil {
		interval := 60 * time.Second
		d.UpdateInterval = &interval
	}
	if d.Suspend == 0 {
		d.Suspend = 30 * time.Second
	}
	if d.Stream == nil {
		enabled := true
		d.Stream = &enabled
	}
	if d.Layout.Columns == 0 {
		d.Layout.Columns = 2
	}
}

func (d *Dashboard) validate() error {
	u, err := url.Parse(d.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server 必须是 http(s) 地址: %q", d.Server)
	}
	if err := dashboard.ValidateRange(d.TimeRange()); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if *d.UpdateInterval < 0 {
		return fmt.Errorf("update_interval 不能为负数")
	}
	if d.ResetDelay < 0 {
		return fmt.Errorf("reset_delay 不能为负数")
	}
	if d.Suspend < 0 {
		return fmt.Errorf("suspend 不能为负数")
	}
	if d.RetryMax < 0 {
		return fmt.Errorf("retry_max 不能为负数")
	}
	if d.Layout.Columns < 1 {
		return fmt.Errorf("layout.columns 必须大于0")
	}
	if len(d.Panels) == 0 {
		return fmt.Errorf("至少需要一个面板")
	}
	for i, p := range d.Panels {
		if p.Type == "" {
			return fmt.Errorf("panels[%d]: 缺少 type", i)
		}
		if len(p.Channels) == 0 {
			return fmt.Errorf("panels[%d]: 缺少 channels", i)
		}
	}
	return nil
}

// TimeRange 返回初始数据区间
func (d *Dashboard) TimeRange() core.TimeRange {
	return core.TimeRange{From: d.Range.From, To: d.Range.To}
}

// StreamEnabled 是否启用实时推送
func (d *Dashboard) StreamEnabled() bool {
	return d.Stream == nil || *d.Stream
}

// Interval 返回自动刷新周期
func (d *Dashboard) Interval() time.Duration {
	if d.UpdateInterval == nil {
		return 0
	}
	return *d.UpdateInterval
}
