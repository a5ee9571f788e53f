package realcugan

import (
	"fmt"
	"io/fs"

	"github.com/getcharzp/go-upscale"
)

// Builder 链式配置引擎, Build 只能调用一次
//
//	engine, err := realcugan.NewBuilder().
//		Preset(realcugan.Se2xConservative).
//		TileSize(200).
//		Build()
type Builder struct {
	cfg   Config
	rt    *upscale.Runtime
	built bool
}

// NewBuilder 基于 DefaultConfig 创建 Builder
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// NewBuilderFromConfig 基于已有配置创建 Builder
func NewBuilderFromConfig(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Device(gpu uint) *Builder {
	b.cfg.Device = int(gpu)
	return b
}

func (b *Builder) CPU() *Builder {
	b.cfg.Device = upscale.CPUDevice
	return b
}

func (b *Builder) TTA() *Builder {
	b.cfg.TTA = true
	return b
}

func (b *Builder) TileSize(tileSize uint) *Builder {
	b.cfg.TileSize = int(tileSize)
	return b
}

func (b *Builder) SyncGap(syncGap SyncGap) *Builder {
	b.cfg.SyncGap = syncGap
	return b
}

func (b *Builder) Threads(threads int) *Builder {
	b.cfg.NumThreads = threads
	return b
}

func (b *Builder) Scale(scale Scale) *Builder {
	b.cfg.Scale = scale
	return b
}

func (b *Builder) Noise(noise Noise) *Builder {
	b.cfg.Noise = noise
	return b
}

func (b *Builder) Family(family Family) *Builder {
	b.cfg.Family = family
	return b
}

// Preset 使用预置模型, 覆盖之前设置的模型文件与模型数据
func (b *Builder) Preset(p Preset) *Builder {
	b.cfg.Preset = p
	b.cfg.ParamPath, b.cfg.BinPath = "", ""
	b.cfg.ParamBytes, b.cfg.BinBytes = nil, nil
	return b
}

// ModelFiles 使用指定的模型文件
func (b *Builder) ModelFiles(paramPath, binPath string) *Builder {
	b.cfg.ParamPath, b.cfg.BinPath = paramPath, binPath
	b.cfg.ParamBytes, b.cfg.BinBytes = nil, nil
	return b
}

// ModelBytes 使用内存中的模型
func (b *Builder) ModelBytes(param, bin []byte) *Builder {
	b.cfg.ParamBytes, b.cfg.BinBytes = param, bin
	b.cfg.ParamPath, b.cfg.BinPath = "", ""
	return b
}

func (b *Builder) ModelDir(dir string) *Builder {
	b.cfg.ModelDir = dir
	return b
}

func (b *Builder) ModelFS(fsys fs.FS) *Builder {
	b.cfg.ModelFS = fsys
	return b
}

func (b *Builder) LibPath(path string) *Builder {
	b.cfg.LibPath = path
	return b
}

// Runtime 使用指定的 Runtime, 不设置时按 LibPath 加载原生库
func (b *Builder) Runtime(rt *upscale.Runtime) *Builder {
	b.rt = rt
	return b
}

// Config 当前配置
func (b *Builder) Config() Config {
	return b.cfg
}

// Build 创建引擎
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("%w: Builder 已经使用过", upscale.ErrConfiguration)
	}
	b.built = true

	if b.rt != nil {
		return NewEngineWithRuntime(b.rt, b.cfg)
	}
	return NewEngine(b.cfg)
}
