// Package tui 配置定义
package tui

import (
	"errors"
	"time"
)

// Config TUI组件的配置结构
type Config struct {
	Title            string        // 仪表盘标题
	Columns          int           // 网格列数，面板按行优先填充
	RefreshInterval  time.Duration // 状态栏和滚动窗口刷新间隔
	MinChartWidth    int           // 最小图表宽度
	MinChartHeight   int           // 最小图表高度
	MaxChartSize     int           // 最大图表尺寸（防止极端值）
	ValueBufferRatio float64       // 值缓冲比例
	PanFraction      float64       // 每次平移窗口长度的比例
	ZoomFactor       float64       // 每次缩放的倍数
	MinWindow        float64       // 最小显示窗口（秒）
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Title:            "godash",
		Columns:          2,
		RefreshInterval:  time.Second, // 每秒刷新状态栏
		MinChartWidth:    20,          // 最小图表宽度
		MinChartHeight:   5,           // 最小图表高度
		MaxChartSize:     1000,        // 最大图表尺寸
		ValueBufferRatio: 0.1,         // 10%缓冲
		PanFraction:      0.25,
		ZoomFactor:       2,
		MinWindow:        10,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.Columns <= 0 {
		return errors.New("网格列数必须大于0")
	}

	if c.RefreshInterval <= 0 {
		return errors.New("刷新间隔必须大于0")
	}

	if c.RefreshInterval < 10*time.Millisecond {
		return errors.New("刷新间隔不能小于10ms")
	}

	if c.MinChartWidth <= 0 {
		return errors.New("最小图表宽度必须大于0")
	}

	if c.MinChartHeight <= 0 {
		return errors.New("最小图表高度必须大于0")
	}

	if c.MaxChartSize <= 0 {
		return errors.New("最大图表尺寸必须大于0")
	}

	if c.ValueBufferRatio < 0 {
		return errors.New("值缓冲比例不能为负数")
	}

	if c.PanFraction <= 0 || c.PanFraction > 1 {
		return errors.New("平移比例必须在(0, 1]之间")
	}

	if c.ZoomFactor <= 1 {
		return errors.New("缩放倍数必须大于1")
	}

	if c.MinWindow <= 0 {
		return errors.New("最小显示窗口必须大于0")
	}

	return nil
}
