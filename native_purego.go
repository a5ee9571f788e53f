//go:build darwin || linux

package upscale

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Library 通过 purego 加载的 librealcugan
type Library struct {
	handle uintptr
	libc   uintptr

	realcuganInit       func(gpuid int32, tta bool, numThreads int32) uintptr
	realcuganSetParams  func(ctx uintptr, scale, noise, prepadding, syncGap, tileSize int32)
	realcuganGPUCount   func() int32
	realcuganDestroyGPU func()
	realcuganHeapBudget func(gpuid int32) uint32
	realcuganLoadFiles  func(ctx uintptr, param, bin uintptr) int32
	realcuganProcess    func(ctx uintptr, in, out *PixelBuffer, mat *uintptr) int32
	realcuganProcessCPU func(ctx uintptr, in, out *PixelBuffer, mat *uintptr) int32
	realcuganFreeImage  func(mat uintptr)
	realcuganFree       func(ctx uintptr)

	fmemopen func(buf unsafe.Pointer, size uintptr, mode string) uintptr
	fclose   func(stream uintptr) int32
}

// Open 加载动态库并绑定 realcugan_* 函数
func Open(path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("打开动态库失败: %w", err)
	}
	libc, err := purego.Dlopen(libcPath(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		_ = purego.Dlclose(handle)
		return nil, fmt.Errorf("打开 libc 失败: %w", err)
	}

	lib := &Library{handle: handle, libc: libc}
	symbols := []struct {
		lib  uintptr
		fptr any
		name string
	}{
		{handle, &lib.realcuganInit, "realcugan_init"},
		{handle, &lib.realcuganSetParams, "realcugan_set_parameters"},
		{handle, &lib.realcuganGPUCount, "realcugan_get_gpu_count"},
		{handle, &lib.realcuganDestroyGPU, "realcugan_destroy_gpu_instance"},
		{handle, &lib.realcuganHeapBudget, "realcugan_get_heap_budget"},
		{handle, &lib.realcuganLoadFiles, "realcugan_load_files"},
		{handle, &lib.realcuganProcess, "realcugan_process"},
		{handle, &lib.realcuganProcessCPU, "realcugan_process_cpu"},
		{handle, &lib.realcuganFreeImage, "realcugan_free_image"},
		{handle, &lib.realcuganFree, "realcugan_free"},
		{libc, &lib.fmemopen, "fmemopen"},
		{libc, &lib.fclose, "fclose"},
	}
	for _, s := range symbols {
		sym, err := purego.Dlsym(s.lib, s.name)
		if err != nil {
			lib.Close()
			return nil, fmt.Errorf("查找符号 %s 失败: %w", s.name, err)
		}
		purego.RegisterFunc(s.fptr, sym)
	}
	return lib, nil
}

// Close 卸载动态库, 调用前需要销毁所有引擎
func (l *Library) Close() error {
	if l.libc != 0 {
		_ = purego.Dlclose(l.libc)
		l.libc = 0
	}
	if l.handle != 0 {
		err := purego.Dlclose(l.handle)
		l.handle = 0
		return err
	}
	return nil
}

func (l *Library) CreateContext(gpu int32, tta bool, threads int32) uintptr {
	return l.realcuganInit(gpu, tta, threads)
}

func (l *Library) SetParameters(ctx uintptr, scale, noise, prepadding, syncGap, tileSize int32) {
	l.realcuganSetParams(ctx, scale, noise, prepadding, syncGap, tileSize)
}

func (l *Library) DeviceCount() int32 {
	return l.realcuganGPUCount()
}

func (l *Library) DestroyGPUInstance() {
	l.realcuganDestroyGPU()
}

func (l *Library) HeapBudget(gpu int32) uint32 {
	return l.realcuganHeapBudget(gpu)
}

// LoadModel 通过 fmemopen 将模型字节伪装成 FILE* 交给 ncnn 读取
func (l *Library) LoadModel(ctx uintptr, param, bin []byte) (int32, error) {
	if len(param) == 0 || len(bin) == 0 {
		return 0, fmt.Errorf("模型数据为空")
	}

	var pinner runtime.Pinner
	pinner.Pin(&param[0])
	pinner.Pin(&bin[0])
	defer pinner.Unpin()

	paramFile := l.fmemopen(unsafe.Pointer(&param[0]), uintptr(len(param)), "rb")
	if paramFile == 0 {
		return 0, fmt.Errorf("创建 param 内存流失败")
	}
	defer l.fclose(paramFile)

	binFile := l.fmemopen(unsafe.Pointer(&bin[0]), uintptr(len(bin)), "rb")
	if binFile == 0 {
		return 0, fmt.Errorf("创建 bin 内存流失败")
	}
	defer l.fclose(binFile)

	return l.realcuganLoadFiles(ctx, paramFile, binFile), nil
}

func (l *Library) ProcessGPU(ctx uintptr, in, out *PixelBuffer, result *uintptr) int32 {
	pinner := pinBuffers(in, out, result)
	defer pinner.Unpin()
	return l.realcuganProcess(ctx, in, out, result)
}

func (l *Library) ProcessCPU(ctx uintptr, in, out *PixelBuffer, result *uintptr) int32 {
	pinner := pinBuffers(in, out, result)
	defer pinner.Unpin()
	return l.realcuganProcessCPU(ctx, in, out, result)
}

func (l *Library) ReleaseResult(result uintptr) {
	if result != 0 {
		l.realcuganFreeImage(result)
	}
}

func (l *Library) DestroyContext(ctx uintptr) {
	if ctx != 0 {
		l.realcuganFree(ctx)
	}
}

// pinBuffers 固定传给原生库的 Go 内存
func pinBuffers(in, out *PixelBuffer, result *uintptr) *runtime.Pinner {
	pinner := new(runtime.Pinner)
	pinner.Pin(in)
	pinner.Pin(out)
	pinner.Pin(result)
	if in.Data != nil {
		pinner.Pin(in.Data)
	}
	return pinner
}

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}
