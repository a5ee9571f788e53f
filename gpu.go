package upscale

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// CPUDevice 使用 CPU 推理时的设备编号
const CPUDevice = -1

// Runtime 持有原生库以及进程内共享 GPU 实例的引用计数
//
// 每个存活或正在创建的 GPU 模式引擎计数一次, 计数归零时销毁共享的 GPU 实例,
// 下一次 DeviceCount 调用会重新创建.
type Runtime struct {
	native       Native
	gpuInstances atomic.Int32
}

// NewRuntime 基于原生接口创建 Runtime
func NewRuntime(native Native) *Runtime {
	return &Runtime{native: native}
}

// Native 原生接口
func (r *Runtime) Native() Native {
	return r.native
}

// GPUInstances 当前存活或正在创建的 GPU 模式引擎数量
func (r *Runtime) GPUInstances() int32 {
	return r.gpuInstances.Load()
}

// ValidateDevice 校验设备编号
func (r *Runtime) ValidateDevice(device int) error {
	if device == CPUDevice {
		return nil
	}
	count := r.native.DeviceCount()
	if device < 0 || device >= int(count) {
		Logger().Warn("设备编号无效", zap.Int("device", device), zap.Int32("count", count))
		return fmt.Errorf("%w: 未找到 GPU %d, 可用数量: %d", ErrDevice, device, count)
	}
	return nil
}

// AcquireDevice 登记一个正在创建的 GPU 引擎并校验设备编号
//
// 计数在查询设备之前增加, 创建过程中共享的 GPU 实例不会被其他引擎销毁.
// 返回 nil 后, 创建失败或引擎释放时都需要调用 ReleaseGPU. CPU 设备不计数.
func (r *Runtime) AcquireDevice(device int) error {
	if device == CPUDevice {
		return nil
	}
	r.AcquireGPU()
	if err := r.ValidateDevice(device); err != nil {
		// 没有其他 GPU 引擎时立即销毁 GPU 实例
		r.ReleaseGPU()
		return err
	}
	return nil
}

// HeapBudget 设备可用显存 (MB)
func (r *Runtime) HeapBudget(device int) uint32 {
	return r.native.HeapBudget(int32(device))
}

// AcquireGPU GPU 实例计数加一
func (r *Runtime) AcquireGPU() {
	r.gpuInstances.Add(1)
}

// ReleaseGPU GPU 实例计数减一, 归零时销毁共享的 GPU 实例
//
// 计数为 0 时的释放会被忽略.
func (r *Runtime) ReleaseGPU() {
	for {
		n := r.gpuInstances.Load()
		if n <= 0 {
			Logger().Warn("GPU 实例计数释放次数多于创建次数")
			return
		}
		if !r.gpuInstances.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			r.native.DestroyGPUInstance()
			Logger().Debug("GPU 实例已销毁")
		}
		return
	}
}
