package realcugan

import (
	"fmt"
	"image"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/getcharzp/go-upscale"
	"github.com/google/uuid"
	"github.com/up-zero/gotool/convertutil"
	"go.uber.org/zap"
)

// engineState 所有克隆共享的原生上下文
type engineState struct {
	id     string
	rt     *upscale.Runtime
	ptr    atomic.Uintptr
	refs   atomic.Int32
	gpu    bool
	params Resolved
	logger *zap.Logger
}

// release 引用计数归零时释放原生上下文
func (s *engineState) release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	if ptr := s.ptr.Swap(0); ptr != 0 {
		s.rt.Native().DestroyContext(ptr)
	}
	if s.gpu {
		s.rt.ReleaseGPU()
	}
	s.logger.Debug("引擎已释放")
}

// Engine Real-CUGAN 超分引擎
//
// Engine 可以通过 Clone 在多个 goroutine 间共享同一个原生上下文,
// 每个 Engine 都需要调用 Destroy, 最后一个 Destroy 释放原生资源.
type Engine struct {
	state    *engineState
	released atomic.Bool
}

// NewEngine 初始化超分引擎
func NewEngine(cfg Config) (*Engine, error) {
	lc := new(upscale.LibConfig)
	if err := convertutil.CopyProperties(cfg, lc); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	rt, err := upscale.Init(*lc)
	if err != nil {
		return nil, err
	}
	return NewEngineWithRuntime(rt, cfg)
}

// NewEngineFromPreset 使用预置模型初始化超分引擎
func NewEngineFromPreset(p Preset) (*Engine, error) {
	return NewEngine(DefaultPresetConfig(p))
}

// NewEngineWithRuntime 使用指定的 Runtime 初始化超分引擎
func NewEngineWithRuntime(rt *upscale.Runtime, cfg Config) (*Engine, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: Runtime 不能为空", upscale.ErrConfiguration)
	}
	params, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	return newEngine(rt, params)
}

func newEngine(rt *upscale.Runtime, params Resolved) (*Engine, error) {
	native := rt.Native()
	gpu := params.Device != upscale.CPUDevice
	id := uuid.NewString()
	log := upscale.Logger().With(
		zap.String("engine", id),
		zap.Int("device", params.Device),
		zap.Int("scale", int(params.Scale)),
		zap.Int("noise", int(params.Noise)),
	)

	if err := rt.AcquireDevice(params.Device); err != nil {
		return nil, err
	}
	// 创建失败时归还 GPU 实例计数
	release := func() {
		if gpu {
			rt.ReleaseGPU()
		}
	}
	params.TileSize = TileSize(params.TileSize, int(params.Scale), params.Device, rt.HeapBudget)

	ptr := native.CreateContext(int32(params.Device), params.TTA, int32(params.NumThreads))
	if ptr == 0 {
		release()
		return nil, fmt.Errorf("%w: 创建推理上下文失败", upscale.ErrLoad)
	}

	status, err := native.LoadModel(ptr, params.Model.Param, params.Model.Bin)
	if err != nil || status != 0 {
		native.DestroyContext(ptr)
		release()
		if err == nil {
			err = &upscale.NativeError{Op: "realcugan_load_files", Code: status}
		}
		log.Warn("模型加载失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", upscale.ErrLoad, err)
	}

	native.SetParameters(ptr,
		int32(params.Scale),
		int32(params.Noise),
		int32(params.Prepadding),
		int32(params.SyncGap),
		int32(params.TileSize),
	)

	state := &engineState{
		id:     id,
		rt:     rt,
		gpu:    gpu,
		params: params,
		logger: log,
	}
	state.ptr.Store(ptr)
	state.refs.Store(1)

	log.Info("引擎初始化完成",
		zap.String("source", params.Source),
		zap.String("family", string(params.Family)),
		zap.Int("tile_size", params.TileSize),
		zap.Int("sync_gap", int(params.SyncGap)),
	)
	return newHandle(state), nil
}

func newHandle(state *engineState) *Engine {
	e := &Engine{state: state}
	// 防止忘记 Destroy
	runtime.SetFinalizer(e, (*Engine).Destroy)
	return e
}

// Clone 共享同一个原生上下文的新引擎
func (e *Engine) Clone() (*Engine, error) {
	if e == nil || e.released.Load() {
		return nil, fmt.Errorf("%w: 引擎已销毁", upscale.ErrHandle)
	}
	for {
		n := e.state.refs.Load()
		if n <= 0 {
			return nil, fmt.Errorf("%w: 引擎已销毁", upscale.ErrHandle)
		}
		if e.state.refs.CompareAndSwap(n, n+1) {
			return newHandle(e.state), nil
		}
	}
}

// Destroy 释放相关资源, 重复调用无效果
func (e *Engine) Destroy() {
	if e == nil || !e.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(e, nil)
	e.state.release()
}

// Params 引擎使用的参数
func (e *Engine) Params() Resolved {
	p := e.state.params
	p.Model = ModelBytes{}
	return p
}

// ID 原生上下文的唯一标识, 克隆之间相同
func (e *Engine) ID() string {
	return e.state.id
}

// pointer 读取原生上下文
func (e *Engine) pointer() (uintptr, error) {
	if e == nil || e.state == nil || e.released.Load() {
		return 0, fmt.Errorf("%w: 引擎已销毁", upscale.ErrHandle)
	}
	ptr := e.state.ptr.Load()
	if ptr == 0 {
		return 0, fmt.Errorf("%w: 原生上下文为空", upscale.ErrHandle)
	}
	return ptr, nil
}

// ProcessBitmap 超分 Bitmap, 1 / 2 通道的输入会被扩展为 3 / 4 通道
func (e *Engine) ProcessBitmap(b *Bitmap) (*Bitmap, error) {
	ptr, err := e.pointer()
	if err != nil {
		return nil, err
	}
	src, err := PrepareBitmap(b)
	if err != nil {
		return nil, err
	}
	return e.process(ptr, src)
}

// Process 超分图片
func (e *Engine) Process(img image.Image) (image.Image, error) {
	ptr, err := e.pointer()
	if err != nil {
		return nil, err
	}
	out, err := e.process(ptr, Prepare(img))
	if err != nil {
		return nil, err
	}
	return Reconstruct(out)
}

// process 调用原生推理并拷贝结果
func (e *Engine) process(ptr uintptr, src *Bitmap) (*Bitmap, error) {
	in, err := inputBuffer(src)
	if err != nil {
		return nil, err
	}
	out, err := outputBuffer(in, int(e.state.params.Scale))
	if err != nil {
		return nil, err
	}

	native := e.state.rt.Native()
	var (
		result uintptr
		status int32
		op     string
	)
	if e.state.gpu {
		op = "realcugan_process"
		status = native.ProcessGPU(ptr, &in, &out, &result)
	} else {
		op = "realcugan_process_cpu"
		status = native.ProcessCPU(ptr, &in, &out, &result)
	}
	runtime.KeepAlive(src)

	defer native.ReleaseResult(result)
	if status != 0 {
		err := &upscale.NativeError{Op: op, Code: status}
		e.state.logger.Warn("推理失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", upscale.ErrProcessing, err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: 输出数据为空", upscale.ErrProcessing)
	}

	n := out.Len()
	pix := make([]byte, n)
	copy(pix, unsafe.Slice(out.Data, n))
	runtime.KeepAlive(e)

	return &Bitmap{
		Pix:      pix,
		Width:    int(out.W),
		Height:   int(out.H),
		Channels: int(out.C),
	}, nil
}
