// Package dashboard 通道收集
package dashboard

import "github.com/Kevin-Rudy/godash/pkg/core"

// CollectChannels 按注册顺序询问每个面板需要的通道
// 结果可能有重复，去重在控制器中完成
func CollectChannels(panels []core.Panel) []string {
	var acc []string
	for _, panel := range panels {
		acc = panel.FillInputChannels(acc)
	}
	return acc
}

// missingChannels 去重并去掉数据包中已有的通道，保持首次出现的顺序
func missingChannels(channels []string, packet *core.DataPacket) []string {
	seen := make(map[string]bool, len(channels))
	var missing []string
	for _, name := range channels {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !packet.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
