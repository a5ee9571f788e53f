package realcugan

import (
	"fmt"

	"github.com/getcharzp/go-upscale"
)

const (
	// cpuTileSize CPU 模式默认分块大小
	cpuTileSize = 400
	// minTileSize 显存不足时的最小分块
	minTileSize = 32
)

// tileThreshold 显存阈值 (MB) 与对应的分块大小
type tileThreshold struct {
	budget   uint32
	tileSize int
}

// tileThresholds 按倍数划分, 阈值降序排列, 取第一个满足 budget > 阈值 的分块大小
var tileThresholds = map[int][]tileThreshold{
	2: {{1300, 400}, {800, 300}, {200, 100}},
	3: {{3300, 400}, {1900, 300}, {950, 200}, {320, 100}},
	4: {{1690, 400}, {980, 300}, {530, 200}, {240, 100}},
}

// Prepadding 每个分块四周额外填充的像素
func Prepadding(scale int) (int, error) {
	switch scale {
	case 2:
		return 18, nil
	case 3:
		return 14, nil
	case 4:
		return 19, nil
	default:
		return 0, fmt.Errorf("%w: %d, 可选值为 2, 3, 4", upscale.ErrInvalidScale, scale)
	}
}

// TileSize 计算分块大小
//
// # Params:
//
//	requested: 用户指定的分块大小, 非 0 时直接使用
//	scale: 放大倍数
//	device: 设备编号, CPUDevice 时使用固定值
//	budget: 查询设备可用显存 (MB)
func TileSize(requested, scale, device int, budget func(device int) uint32) int {
	if requested != 0 {
		return requested
	}
	if device == upscale.CPUDevice {
		return cpuTileSize
	}

	thresholds, ok := tileThresholds[scale]
	if !ok {
		return minTileSize
	}
	heapBudget := budget(device)
	for _, t := range thresholds {
		if heapBudget > t.budget {
			return t.tileSize
		}
	}
	return minTileSize
}

// ResolveSyncGap SE 系列模型只能使用 SyncGapDisabled
func ResolveSyncGap(configured SyncGap, family Family) SyncGap {
	if !family.AllowsSyncGap() {
		return SyncGapDisabled
	}
	return configured
}
