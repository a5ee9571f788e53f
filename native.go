package upscale

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// PixelBuffer 与原生库 Image 结构体内存布局一致
//
//	typedef struct Image { unsigned char *data; int w; int h; int c; } Image;
type PixelBuffer struct {
	Data *byte
	W    int32
	H    int32
	C    int32
}

// Len 像素数据字节数
func (b *PixelBuffer) Len() int {
	return int(b.W) * int(b.H) * int(b.C)
}

// Native 原生库的 C 接口
//
// 同一个上下文可以被多个 goroutine 同时调用 ProcessGPU / ProcessCPU, 这由原生库保证,
// 本包不做加锁. 上下文创建后参数不再修改.
type Native interface {
	// CreateContext 创建推理上下文, 失败返回 0
	CreateContext(gpu int32, tta bool, threads int32) uintptr
	// SetParameters 设置推理参数
	SetParameters(ctx uintptr, scale, noise, prepadding, syncGap, tileSize int32)
	// DeviceCount GPU 数量, 首次调用时会创建共享的 GPU 实例
	DeviceCount() int32
	// DestroyGPUInstance 销毁共享的 GPU 实例
	DestroyGPUInstance()
	// HeapBudget 设备可用显存 (MB)
	HeapBudget(gpu int32) uint32
	// LoadModel 以内存流的方式加载模型, err 表示内存流创建失败, status 为原生返回值
	LoadModel(ctx uintptr, param, bin []byte) (status int32, err error)
	// ProcessGPU GPU 推理, result 需要通过 ReleaseResult 释放
	ProcessGPU(ctx uintptr, in, out *PixelBuffer, result *uintptr) int32
	// ProcessCPU CPU 推理, result 需要通过 ReleaseResult 释放
	ProcessCPU(ctx uintptr, in, out *PixelBuffer, result *uintptr) int32
	// ReleaseResult 释放推理结果
	ReleaseResult(result uintptr)
	// DestroyContext 释放推理上下文
	DestroyContext(ctx uintptr)
}

// LibConfig 原生库配置
type LibConfig struct {
	LibPath string // librealcugan 动态库路径
}

var (
	defaultRuntime *Runtime
	initErr        error
	once           sync.Once
)

// Init 加载原生库并返回进程内共享的 Runtime
func Init(cfg LibConfig) (*Runtime, error) {
	if cfg.LibPath == "" {
		return nil, fmt.Errorf("%w: LibPath 不能为空", ErrConfiguration)
	}
	once.Do(func() {
		var lib *Library
		lib, initErr = Open(cfg.LibPath)
		if initErr != nil {
			return
		}
		defaultRuntime = NewRuntime(lib)
		Logger().Info("原生库加载完成", zap.String("path", cfg.LibPath))
	})
	if initErr != nil {
		return nil, fmt.Errorf("%w: 加载原生库失败: %w", ErrLoad, initErr)
	}
	return defaultRuntime, nil
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "librealcugan"

	if runtime.GOOS == "windows" {
		return baseDir + "realcugan.dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	// ./lib/librealcugan_amd64.so
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
