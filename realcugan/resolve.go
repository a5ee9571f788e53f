package realcugan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/getcharzp/go-upscale"
	"github.com/getcharzp/go-upscale/realcugan/models"
)

// 模型来源
const (
	SourceBytes     = "bytes"
	SourceFiles     = "files"
	SourcePreset    = "preset"
	SourceDirectory = "directory"
)

// Resolved 解析后的引擎参数, 创建后不再修改
type Resolved struct {
	Device     int
	NumThreads int
	TTA        bool
	TileSize   int // 用户指定的分块大小, 0 表示自动
	SyncGap    SyncGap
	Scale      Scale
	Noise      Noise
	Prepadding int
	Family     Family // 为空表示未知系列
	Model      ModelBytes
	Source     string // 模型来源
}

// Resolve 读取模型并计算引擎所需的参数
func (c Config) Resolve() (Resolved, error) {
	if c.ModelDir == "" {
		c.ModelDir = "."
	}

	var (
		model  ModelBytes
		source string
		err    error
	)
	switch {
	case len(c.ParamBytes) > 0 || len(c.BinBytes) > 0:
		source = SourceBytes
		model = ModelBytes{Param: c.ParamBytes, Bin: c.BinBytes}
	case c.ParamPath != "" || c.BinPath != "":
		source = SourceFiles
		model, err = c.resolveFiles()
	case c.Preset != PresetNone:
		source = SourcePreset
		model, err = c.resolvePreset()
	default:
		source = SourceDirectory
		model, err = c.resolveDirectory()
	}
	if err != nil {
		return Resolved{}, err
	}

	if err := c.validate(); err != nil {
		return Resolved{}, err
	}
	if model.empty() {
		return Resolved{}, fmt.Errorf("%w: 模型数据为空 (来源: %s)", upscale.ErrConfiguration, source)
	}

	prepadding, _ := Prepadding(int(c.Scale))
	return Resolved{
		Device:     c.Device,
		NumThreads: c.NumThreads,
		TTA:        c.TTA,
		TileSize:   c.TileSize,
		SyncGap:    ResolveSyncGap(c.SyncGap, c.Family),
		Scale:      c.Scale,
		Noise:      c.Noise,
		Prepadding: prepadding,
		Family:     c.Family,
		Model:      model,
		Source:     source,
	}, nil
}

// resolveFiles 读取指定的模型文件, 并根据文件名覆盖 Scale / Noise / Family
func (c *Config) resolveFiles() (ModelBytes, error) {
	if c.ParamPath == "" || c.BinPath == "" {
		return ModelBytes{}, fmt.Errorf("%w: ParamPath 与 BinPath 需要同时指定", upscale.ErrConfiguration)
	}
	param, err := os.ReadFile(c.ParamPath)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("%w: 读取 param 文件失败: %w", upscale.ErrConfiguration, err)
	}
	bin, err := os.ReadFile(c.BinPath)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("%w: 读取 bin 文件失败: %w", upscale.ErrConfiguration, err)
	}

	hints := inferFromPath(c.ParamPath)
	if hints.scale != nil {
		c.Scale = *hints.scale
	}
	if hints.noise != nil {
		c.Noise = *hints.noise
	}
	if hints.family != nil {
		c.Family = *hints.family
	}
	return ModelBytes{Param: param, Bin: bin}, nil
}

// resolvePreset 读取预置模型
func (c *Config) resolvePreset() (ModelBytes, error) {
	info, ok := c.Preset.info()
	if !ok {
		return ModelBytes{}, fmt.Errorf("%w: 未知的预置模型 %d", upscale.ErrConfiguration, int(c.Preset))
	}
	c.Family, c.Scale, c.Noise = info.family, info.scale, info.noise

	fsys := c.ModelFS
	if fsys == nil {
		fsys = models.FS()
	}
	if fsys == nil {
		fsys = os.DirFS(c.ModelDir)
	}
	paramName, binName := modelFiles(info.family, info.scale, info.noise)
	model, err := readModelFS(fsys, paramName, binName)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("%w: 预置模型 %s: %w", upscale.ErrConfiguration, c.Preset, err)
	}
	return model, nil
}

// resolveDirectory 按 ModelDir/models-{Family}/up{Scale}x-{降噪}.{param,bin} 查找模型, Family 默认 se
func (c *Config) resolveDirectory() (ModelBytes, error) {
	if c.Family == "" {
		c.Family = FamilySE
	}
	if err := c.validate(); err != nil {
		return ModelBytes{}, err
	}
	if info, err := os.Stat(c.ModelDir); err != nil || !info.IsDir() {
		return ModelBytes{}, fmt.Errorf("%w: 模型目录 %s 不存在", upscale.ErrConfiguration, c.ModelDir)
	}
	paramName, binName := modelFiles(c.Family, c.Scale, c.Noise)
	model, err := readModelFS(os.DirFS(c.ModelDir), paramName, binName)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("%w: %s: %w", upscale.ErrConfiguration,
			filepath.Join(c.ModelDir, filepath.FromSlash(paramName)), err)
	}
	return model, nil
}
