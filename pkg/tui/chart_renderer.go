// Package tui 图表渲染模块
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kevin-Rudy/godash/pkg/core"
)

// brailleCell 定义盲文字符的cell结构
type brailleCell struct {
	char  int
	color string
}

// 盲文点阵的映射关系 (2x4 grid)
var brailleDotMap = [4][2]int{
	{0b00000001, 0b00001000}, // (y:0, x:0), (y:0, x:1)
	{0b00000010, 0b00010000}, // (y:1, x:0), (y:1, x:1)
	{0b00000100, 0b00100000}, // (y:2, x:0), (y:2, x:1)
	{0b01000000, 0b10000000}, // (y:3, x:0), (y:3, x:1)
}

// validateChartSize 验证图表尺寸是否合理
func (t *TUI) validateChartSize(width, height int) string {
	if height < t.tuiConfig.MinChartHeight || width < t.tuiConfig.MinChartWidth {
		return "终端尺寸过小"
	}
	if width > t.tuiConfig.MaxChartSize || height > t.tuiConfig.MaxChartSize {
		return "终端尺寸过大"
	}
	return ""
}

// drawChart 在给定窗口内绘制多条曲线
func (t *TUI) drawChart(series []chartSeries, w timeWindow, yMin, yMax *float64, width, height int) string {
	// 检查图表尺寸是否合理
	if sizeErr := t.validateChartSize(width, height); sizeErr != "" {
		return sizeErr
	}

	// 1. 计算值范围
	minVal, maxVal, valueRange, err := t.calculateValueRange(series, w, yMin, yMax)
	if err != "" {
		return err
	}

	// 2. 动态计算Y轴标签宽度
	topLabel := formatValue(maxVal)
	bottomLabel := formatValue(minVal)
	maxLabelLen := len(topLabel)
	if len(bottomLabel) > maxLabelLen {
		maxLabelLen = len(bottomLabel)
	}
	yAxisLabelWidth := maxLabelLen + 2 // +2 为│分隔符和右侧空格留出缓冲

	// 3. 准备画布尺寸
	chartBodyHeight := height - 2 // 为X轴和时间戳留出2行空间
	chartWidth := width - yAxisLabelWidth

	// 确保画布尺寸合理
	if chartBodyHeight <= 0 || chartWidth <= 0 {
		return "可绘制区域过小"
	}

	// 4. 创建盲文画布
	canvas := make([][]brailleCell, chartWidth)
	for i := range canvas {
		canvas[i] = make([]brailleCell, chartBodyHeight)
	}

	// 5. 按通道顺序绘制，后绘制的通道覆盖颜色
	for _, s := range series {
		color := s.color
		if color == "" {
			color = "[white]"
		}

		lastValidX, lastValidY := -1, -1
		for _, point := range s.points {
			if !w.contains(point.ts) {
				continue
			}

			// 非数值样本断开曲线
			if math.IsNaN(point.value) || math.IsInf(point.value, 0) {
				lastValidX, lastValidY = -1, -1
				continue
			}

			// 计算X坐标（基于时间戳，高分辨率）
			currX := timestampToX(point.ts, w, chartWidth*2)
			if currX < 0 || currX >= chartWidth*2 {
				continue
			}

			// 计算Y坐标
			normalized := (point.value - minVal) / valueRange
			currY := int((1.0 - normalized) * float64(chartBodyHeight*4-1))

			// 边界检查（高分辨率坐标），超出配置范围的值贴边显示
			if currY < 0 {
				currY = 0
			} else if currY >= chartBodyHeight*4 {
				currY = chartBodyHeight*4 - 1
			}

			if lastValidX != -1 {
				drawBrailleLine(canvas, lastValidX, lastValidY, currX, currY, color)
			} else {
				setBrailleDot(canvas, currX, currY, color)
			}

			lastValidX, lastValidY = currX, currY
		}
	}

	// 6. 构建输出字符串
	lines := make([]string, 0, height)

	// 预先计算Y轴标签位置
	yAxisLabelCount := 5
	if chartBodyHeight < yAxisLabelCount {
		yAxisLabelCount = chartBodyHeight
	}

	yAxisLabels := make(map[int]string)
	if yAxisLabelCount > 1 {
		for i := 0; i < yAxisLabelCount; i++ {
			// 在数值上均匀分布
			normalized := float64(i) / float64(yAxisLabelCount-1)
			value := maxVal - normalized*valueRange
			pixelRow := int(normalized * float64(chartBodyHeight-1))
			yAxisLabels[pixelRow] = formatValue(value)
		}
	}

	// 绘制Y轴和图表主体
	for i := 0; i < chartBodyHeight; i++ {
		var line strings.Builder
		fmt.Fprintf(&line, "[gray]%*s[white] [gray]│[white]", yAxisLabelWidth-2, yAxisLabels[i])

		for j := 0; j < chartWidth; j++ {
			cell := canvas[j][i]
			if cell.char == 0 {
				line.WriteByte(' ')
			} else {
				line.WriteString(cell.color + string(rune(0x2800+cell.char)) + "[white]")
			}
		}
		lines = append(lines, line.String())
	}

	// 7. 绘制X轴
	xAxisLine := fmt.Sprintf("%-*s└%s", yAxisLabelWidth-1, "", strings.Repeat("─", chartWidth))
	lines = append(lines, "[gray]"+xAxisLine+"[white]")

	// X轴时间刻度，跨天的窗口显示日期
	layout := "15:04:05"
	if w.end-w.start >= 86400 {
		layout = "01-02 15:04"
	}
	startTimeStr := core.FromUnixSeconds(w.start).Format(layout)
	endTimeStr := core.FromUnixSeconds(w.end).Format(layout)

	spaceCount := chartWidth - len(startTimeStr) - len(endTimeStr)
	if spaceCount < 1 {
		spaceCount = 1
	}
	timeLine := fmt.Sprintf("%-*s%s%*s%s", yAxisLabelWidth, "", startTimeStr, spaceCount, "", endTimeStr)
	lines = append(lines, "[gray]"+timeLine+"[white]")

	// 保护性检查：确保输出不会超过可用高度，保证X轴总是可见
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}

	return strings.Join(lines, "\n")
}

// setBrailleDot 在画布上标记一个高分辨率像素
func setBrailleDot(canvas [][]brailleCell, x, y int, color string) {
	canvasX := x / 2
	canvasY := y / 4
	if canvasX < 0 || canvasX >= len(canvas) || canvasY < 0 || canvasY >= len(canvas[0]) {
		return
	}
	canvas[canvasX][canvasY].char |= brailleDotMap[y%4][x%2]
	canvas[canvasX][canvasY].color = color
}

// drawBrailleLine 使用布雷森汉姆算法在盲文画布上绘制线段
func drawBrailleLine(canvas [][]brailleCell, x1, y1, x2, y2 int, color string) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	x, y := x1, y1
	for {
		setBrailleDot(canvas, x, y, color)

		// 检查是否到达终点
		if x == x2 && y == y2 {
			break
		}

		// 计算下一个位置
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}
