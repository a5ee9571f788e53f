package realcugan

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/getcharzp/go-upscale"
)

// fakeNative 模拟原生库, 输出为最近邻放大的输入
type fakeNative struct {
	devices    int32
	budget     uint32
	loadStatus int32
	procStatus int32

	// 非空时 LoadModel 先通知 loadStarted, 再等待 loadGate 关闭
	loadStarted chan struct{}
	loadGate    chan struct{}

	nextCtx atomic.Uintptr

	created        atomic.Int32
	destroyed      atomic.Int32
	loaded         atomic.Int32
	processed      atomic.Int32
	released       atomic.Int32
	gpuDestroyed   atomic.Int32
	lastTileSize   atomic.Int32
	lastSyncGap    atomic.Int32
	lastPrepadding atomic.Int32

	mu      sync.Mutex
	results map[uintptr][]byte
	live    map[uintptr]bool
}

func newFakeNative(devices int32, budget uint32) *fakeNative {
	return &fakeNative{
		devices: devices,
		budget:  budget,
		results: map[uintptr][]byte{},
		live:    map[uintptr]bool{},
	}
}

func (f *fakeNative) CreateContext(gpu int32, tta bool, threads int32) uintptr {
	f.created.Add(1)
	ptr := 0x1000 + f.nextCtx.Add(1)
	f.mu.Lock()
	f.live[ptr] = true
	f.mu.Unlock()
	return ptr
}

func (f *fakeNative) SetParameters(ctx uintptr, scale, noise, prepadding, syncGap, tileSize int32) {
	f.lastPrepadding.Store(prepadding)
	f.lastSyncGap.Store(syncGap)
	f.lastTileSize.Store(tileSize)
}

func (f *fakeNative) DeviceCount() int32 { return f.devices }

func (f *fakeNative) DestroyGPUInstance() { f.gpuDestroyed.Add(1) }

func (f *fakeNative) HeapBudget(gpu int32) uint32 { return f.budget }

func (f *fakeNative) LoadModel(ctx uintptr, param, bin []byte) (int32, error) {
	f.loaded.Add(1)
	if f.loadGate != nil {
		f.loadStarted <- struct{}{}
		<-f.loadGate
	}
	return f.loadStatus, nil
}

func (f *fakeNative) ProcessGPU(ctx uintptr, in, out *upscale.PixelBuffer, result *uintptr) int32 {
	return f.process(ctx, in, out, result)
}

func (f *fakeNative) ProcessCPU(ctx uintptr, in, out *upscale.PixelBuffer, result *uintptr) int32 {
	return f.process(ctx, in, out, result)
}

func (f *fakeNative) process(ctx uintptr, in, out *upscale.PixelBuffer, result *uintptr) int32 {
	id := 0x9000 + uintptr(f.processed.Add(1))
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.live[ctx] {
		return -2
	}
	// 失败时同样分配结果, 检查调用方是否释放
	pix := make([]byte, out.Len())
	f.results[id] = pix
	*result = id
	if f.procStatus != 0 {
		return f.procStatus
	}

	src := unsafeBytes(in)
	scale := int(out.W / in.W)
	c := int(in.C)
	for y := 0; y < int(out.H); y++ {
		for x := 0; x < int(out.W); x++ {
			si := ((y/scale)*int(in.W) + x/scale) * c
			di := (y*int(out.W) + x) * c
			copy(pix[di:di+c], src[si:si+c])
		}
	}
	out.Data = &pix[0]
	return 0
}

func (f *fakeNative) ReleaseResult(result uintptr) {
	if result == 0 {
		return
	}
	f.released.Add(1)
	f.mu.Lock()
	delete(f.results, result)
	f.mu.Unlock()
}

func (f *fakeNative) DestroyContext(ctx uintptr) {
	f.destroyed.Add(1)
	f.mu.Lock()
	delete(f.live, ctx)
	f.mu.Unlock()
}

// pending 未释放的推理结果数量
func (f *fakeNative) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func unsafeBytes(b *upscale.PixelBuffer) []byte {
	return unsafe.Slice(b.Data, b.Len())
}

// testModel 测试用的模型数据, 内容不会被解析
func testModel() ModelBytes {
	return ModelBytes{Param: []byte("7767517\n"), Bin: []byte{0, 1, 2, 3}}
}

// testConfig 使用内存模型的配置
func testConfig(device int) Config {
	cfg := DefaultConfig()
	cfg.Device = device
	m := testModel()
	cfg.ParamBytes, cfg.BinBytes = m.Param, m.Bin
	return cfg
}
