package realcugan

import (
	"fmt"
	"io/fs"

	"github.com/getcharzp/go-upscale"
)

// Scale 放大倍数
type Scale int

const (
	Scale2x Scale = 2
	Scale3x Scale = 3
	Scale4x Scale = 4
)

// Noise 降噪强度
type Noise int

const (
	NoiseConservative Noise = -1 // 保守, 尽量保留原图细节
	NoiseNone         Noise = 0  // 不降噪
	NoiseLow          Noise = 1
	NoiseMedium       Noise = 2
	NoiseHigh         Noise = 3
)

// SyncGap 分块边界同步等级
type SyncGap int

const (
	SyncGapDisabled SyncGap = iota // 0
	SyncGapLoose                   // 1
	SyncGapModerate                // 2
	SyncGapStrict                  // 3 (默认)
)

// Family 模型系列
type Family string

const (
	FamilySE   Family = "se"
	FamilyPro  Family = "pro"
	FamilyNose Family = "nose"
)

// Dir 模型所在的目录名, 例如 models-se
func (f Family) Dir() string {
	return "models-" + string(f)
}

// AllowsSyncGap SE 系列模型结构不支持调整 SyncGap, 未知系列不做限制
func (f Family) AllowsSyncGap() bool {
	return f != FamilySE
}

func (f Family) valid() bool {
	switch f {
	case FamilySE, FamilyPro, FamilyNose:
		return true
	}
	return false
}

// Config 引擎的初始化参数
//
// 模型来源按以下优先级选择:
//   - ParamBytes / BinBytes: 直接使用内存中的模型
//   - ParamPath / BinPath: 读取指定文件, 并根据文件名推断 Scale / Noise
//   - Preset: 预置模型, 从 ModelFS (默认 ModelDir) 中读取
//   - 以上都为空时按 ModelDir/models-{Family}/up{Scale}x-{降噪}.{param,bin} 查找
type Config struct {
	LibPath string `yaml:"lib_path"` // librealcugan 动态库路径

	// 模型参数
	Scale  Scale  `yaml:"scale"`  // 放大倍数 2, 3, 4 (默认 2)
	Noise  Noise  `yaml:"noise"`  // 降噪 -1 ~ 3 (默认 -1)
	Family Family `yaml:"family"` // (可选) 模型系列, 为空时由预置模型或文件路径决定, 目录查找默认 se

	// 模型来源
	Preset     Preset `yaml:"preset"`
	ParamPath  string `yaml:"param_path"`
	BinPath    string `yaml:"bin_path"`
	ModelDir   string `yaml:"model_dir"` // 默认 ./realcugan_weights
	ParamBytes []byte `yaml:"-"`
	BinBytes   []byte `yaml:"-"`
	ModelFS    fs.FS  `yaml:"-"` // (可选) 预置模型的文件系统, 默认 os.DirFS(ModelDir)

	// 可选参数
	Device     int     `yaml:"device"`      // (可选) GPU 编号, upscale.CPUDevice 为 CPU
	NumThreads int     `yaml:"num_threads"` // (可选) 线程数 (默认 1)
	TTA        bool    `yaml:"tta"`         // (可选) 是否启用 TTA, 效果更好但速度慢 8 倍
	TileSize   int     `yaml:"tile_size"`   // (可选) 分块大小, 0 表示根据显存自动计算
	SyncGap    SyncGap `yaml:"sync_gap"`    // (可选) 0 ~ 3 (默认 3), SE 系列固定为 0
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		LibPath:    upscale.DefaultLibraryPath(),
		Scale:      Scale2x,
		Noise:      NoiseConservative,
		ModelDir:   "./realcugan_weights",
		Device:     0,
		NumThreads: 1,
		SyncGap:    SyncGapStrict,
	}
}

// DefaultPresetConfig 使用预置模型的默认配置
func DefaultPresetConfig(p Preset) Config {
	cfg := DefaultConfig()
	cfg.Preset = p
	return cfg
}

// DefaultCPUConfig CPU 推理的默认配置
func DefaultCPUConfig() Config {
	cfg := DefaultConfig()
	cfg.Device = upscale.CPUDevice
	return cfg
}

// validate 校验数值参数
func (c *Config) validate() error {
	if _, err := Prepadding(int(c.Scale)); err != nil {
		return fmt.Errorf("%w: %w", upscale.ErrConfiguration, err)
	}
	if c.Noise < NoiseConservative || c.Noise > NoiseHigh {
		return fmt.Errorf("%w: 降噪等级 %d 超出范围 -1 ~ 3", upscale.ErrConfiguration, c.Noise)
	}
	if c.SyncGap < SyncGapDisabled || c.SyncGap > SyncGapStrict {
		return fmt.Errorf("%w: SyncGap %d 超出范围 0 ~ 3", upscale.ErrConfiguration, c.SyncGap)
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("%w: 线程数 %d 不能为负数", upscale.ErrConfiguration, c.NumThreads)
	}
	if c.TileSize < 0 {
		return fmt.Errorf("%w: 分块大小 %d 不能为负数", upscale.ErrConfiguration, c.TileSize)
	}
	if c.Family != "" && !c.Family.valid() {
		return fmt.Errorf("%w: 未知的模型系列 %q", upscale.ErrConfiguration, c.Family)
	}
	return nil
}
