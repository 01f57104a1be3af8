// Package tui 数据处理模块
package tui

import (
	"fmt"
	"math"

	"github.com/Kevin-Rudy/godash/pkg/core"
)

// dataPoint 绘图使用的数据点
type dataPoint struct {
	ts    float64
	value float64
}

// chartSeries 一个通道的绘图数据
type chartSeries struct {
	name   string
	color  string
	points []dataPoint
}

// extractSeries 从数据包取出通道的数值点，非数值样本记为NaN（断开曲线）
// 缺失的通道返回 ok=false，表示尚未更新
func extractSeries(packet *core.DataPacket, name string) (points []dataPoint, ok bool) {
	series, ok := packet.Channel(name)
	if !ok {
		return nil, false
	}

	points = make([]dataPoint, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		v, numeric := series.Float(i)
		if !numeric {
			v = math.NaN()
		}
		points = append(points, dataPoint{ts: series.Time(i), value: v})
	}
	return points, true
}

// latestSample 返回通道的最新样本
func latestSample(packet *core.DataPacket, name string) (ts float64, value any, ok bool) {
	series, exists := packet.Channel(name)
	if !exists {
		return 0, nil, false
	}
	return series.Last()
}

// formatSample 按面板格式化一个样本值
func formatSample(value any, format, unit string) string {
	var text string
	switch v := value.(type) {
	case nil:
		text = "N/A"
	case float64:
		if format == "" {
			text = formatValue(v)
		} else {
			text = fmt.Sprintf(format, v)
		}
	case string:
		text = v
	case bool:
		text = fmt.Sprintf("%t", v)
	default:
		text = fmt.Sprintf("%v", v)
	}

	if unit != "" && value != nil {
		text += " " + unit
	}
	return text
}

// calculateValueRange 计算窗口内数据的值范围
// 面板配置的 ymin/ymax 优先
func (t *TUI) calculateValueRange(series []chartSeries, w timeWindow, yMin, yMax *float64) (minVal, maxVal, valueRange float64, errMsg string) {
	// 收集窗口内的所有有效数据点
	var allValidValues []float64
	for _, s := range series {
		for _, point := range s.points {
			if w.contains(point.ts) && !math.IsNaN(point.value) && !math.IsInf(point.value, 0) {
				allValidValues = append(allValidValues, point.value)
			}
		}
	}

	if len(allValidValues) == 0 && (yMin == nil || yMax == nil) {
		return 0, 0, 0, "当前窗口内没有有效数据"
	}

	if len(allValidValues) > 0 {
		minVal, maxVal = allValidValues[0], allValidValues[0]
		for _, v := range allValidValues {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}

		// 如果所有值都一样，特殊处理
		if maxVal == minVal {
			maxVal++
			minVal--
		}

		// 采用缓冲算法，非负数据不缓冲到负值
		nonNegative := minVal >= 0
		span := maxVal - minVal
		maxVal += span * t.tuiConfig.ValueBufferRatio
		minVal -= span * t.tuiConfig.ValueBufferRatio
		if nonNegative && minVal < 0 {
			minVal = 0
		}
	}

	if yMin != nil {
		minVal = *yMin
	}
	if yMax != nil {
		maxVal = *yMax
	}

	valueRange = maxVal - minVal
	if valueRange <= 0 {
		return 0, 0, 0, "ymin 必须小于 ymax"
	}

	return minVal, maxVal, valueRange, ""
}
