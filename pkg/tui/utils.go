// Package tui 工具函数和辅助类型
package tui

import (
	"fmt"
	"math"
)

// 通道颜色序列
var colorSequence = []string{
	"[green]", "[yellow]", "[blue]", "[magenta]", "[cyan]", "[red]",
	"[orange]", "[purple]", "[lime]", "[pink]",
	"[darkcyan]", "[darkgreen]", "[darkblue]", "[darkmagenta]",
}

// formatValue 提供自适应的数值格式化
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}

	mag := math.Abs(v)
	switch {
	case mag == 0:
		return "0"
	case mag >= 1e6 || mag < 1e-3:
		return fmt.Sprintf("%.2e", v)
	case mag >= 1000:
		return fmt.Sprintf("%.0f", v)
	case mag >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.3g", v)
	}
}

// channelColor 按通道在面板中的位置分配颜色，保证颜色稳定
func channelColor(index int) string {
	return colorSequence[index%len(colorSequence)]
}

// abs 返回整数的绝对值
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
