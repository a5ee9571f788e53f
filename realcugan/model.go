package realcugan

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Preset 预置模型
type Preset int

const (
	PresetNone Preset = iota
	Se2xNoDenoise
	Se2xConservative
	Se2xLowDenoise
	Se2xMediumDenoise
	Se2xHighDenoise
	Se3xNoDenoise
	Se3xConservative
	Se3xHighDenoise
	Se4xNoDenoise
	Se4xConservative
	Se4xHighDenoise
	Pro2xNoDenoise
	Pro2xConservative
	Pro2xHighDenoise
	Pro3xNoDenoise
	Pro3xConservative
	Pro3xHighDenoise
	Nose2xNoDenoise
)

// presetInfo 预置模型对应的文件与参数
type presetInfo struct {
	name   string
	family Family
	scale  Scale
	noise  Noise
}

var presets = [...]presetInfo{
	Se2xNoDenoise:     {"se-2x-no-denoise", FamilySE, Scale2x, NoiseNone},
	Se2xConservative:  {"se-2x-conservative", FamilySE, Scale2x, NoiseConservative},
	Se2xLowDenoise:    {"se-2x-denoise1x", FamilySE, Scale2x, NoiseLow},
	Se2xMediumDenoise: {"se-2x-denoise2x", FamilySE, Scale2x, NoiseMedium},
	Se2xHighDenoise:   {"se-2x-denoise3x", FamilySE, Scale2x, NoiseHigh},
	Se3xNoDenoise:     {"se-3x-no-denoise", FamilySE, Scale3x, NoiseNone},
	Se3xConservative:  {"se-3x-conservative", FamilySE, Scale3x, NoiseConservative},
	Se3xHighDenoise:   {"se-3x-denoise3x", FamilySE, Scale3x, NoiseHigh},
	Se4xNoDenoise:     {"se-4x-no-denoise", FamilySE, Scale4x, NoiseNone},
	Se4xConservative:  {"se-4x-conservative", FamilySE, Scale4x, NoiseConservative},
	Se4xHighDenoise:   {"se-4x-denoise3x", FamilySE, Scale4x, NoiseHigh},
	Pro2xNoDenoise:    {"pro-2x-no-denoise", FamilyPro, Scale2x, NoiseNone},
	Pro2xConservative: {"pro-2x-conservative", FamilyPro, Scale2x, NoiseConservative},
	Pro2xHighDenoise:  {"pro-2x-denoise3x", FamilyPro, Scale2x, NoiseHigh},
	Pro3xNoDenoise:    {"pro-3x-no-denoise", FamilyPro, Scale3x, NoiseNone},
	Pro3xConservative: {"pro-3x-conservative", FamilyPro, Scale3x, NoiseConservative},
	Pro3xHighDenoise:  {"pro-3x-denoise3x", FamilyPro, Scale3x, NoiseHigh},
	Nose2xNoDenoise:   {"nose-2x-no-denoise", FamilyNose, Scale2x, NoiseNone},
}

func (p Preset) info() (presetInfo, bool) {
	if p <= PresetNone || int(p) >= len(presets) {
		return presetInfo{}, false
	}
	return presets[p], true
}

func (p Preset) String() string {
	if info, ok := p.info(); ok {
		return info.name
	}
	if p == PresetNone {
		return ""
	}
	return "preset(" + strconv.Itoa(int(p)) + ")"
}

// Presets 所有预置模型
func Presets() []Preset {
	list := make([]Preset, 0, len(presets)-1)
	for p := PresetNone + 1; int(p) < len(presets); p++ {
		list = append(list, p)
	}
	return list
}

// ParsePreset 根据名称查找预置模型, 例如 se-2x-conservative
func ParsePreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PresetNone, nil
	}
	for _, p := range Presets() {
		if presets[p].name == name {
			return p, nil
		}
	}
	return PresetNone, fmt.Errorf("未知的预置模型 %q", name)
}

func (p Preset) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Preset) UnmarshalText(text []byte) error {
	v, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ModelBytes 模型的 param 与 bin 数据
type ModelBytes struct {
	Param []byte
	Bin   []byte
}

func (m ModelBytes) empty() bool {
	return len(m.Param) == 0 || len(m.Bin) == 0
}

// modelStem 模型文件名 (不含扩展名), 例如 up2x-conservative
func modelStem(scale Scale, noise Noise) string {
	switch noise {
	case NoiseConservative:
		return fmt.Sprintf("up%dx-conservative", scale)
	case NoiseNone:
		return fmt.Sprintf("up%dx-no-denoise", scale)
	default:
		return fmt.Sprintf("up%dx-denoise%dx", scale, noise)
	}
}

// modelFiles 模型在目录中的相对路径, 使用 / 分隔以便用于 fs.FS
func modelFiles(family Family, scale Scale, noise Noise) (param, bin string) {
	stem := path.Join(family.Dir(), modelStem(scale, noise))
	return stem + ".param", stem + ".bin"
}

// readModelFS 从文件系统读取模型
func readModelFS(fsys fs.FS, paramName, binName string) (ModelBytes, error) {
	param, err := fs.ReadFile(fsys, paramName)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("读取 param 文件失败: %w", err)
	}
	bin, err := fs.ReadFile(fsys, binName)
	if err != nil {
		return ModelBytes{}, fmt.Errorf("读取 bin 文件失败: %w", err)
	}
	return ModelBytes{Param: param, Bin: bin}, nil
}

var (
	scalePattern   = regexp.MustCompile(`up(\d)x`)
	denoisePattern = regexp.MustCompile(`denoise(\d)x`)
)

// modelHints 从模型文件名推断出的参数, 为 nil 表示未能推断
type modelHints struct {
	scale  *Scale
	noise  *Noise
	family *Family
}

// inferFromPath 根据文件名推断倍数与降噪等级, 根据所在目录推断模型系列
//
//	models-pro/up3x-denoise3x.param => pro, 3x, noise 3
func inferFromPath(paramPath string) modelHints {
	var hints modelHints
	name := strings.ToLower(filepath.Base(paramPath))

	if m := scalePattern.FindStringSubmatch(name); m != nil {
		s := Scale(m[1][0] - '0')
		hints.scale = &s
	}

	var noise Noise
	switch {
	case strings.Contains(name, "no-denoise"):
		noise = NoiseNone
		hints.noise = &noise
	case strings.Contains(name, "conservative"):
		noise = NoiseConservative
		hints.noise = &noise
	default:
		if m := denoisePattern.FindStringSubmatch(name); m != nil {
			noise = Noise(m[1][0] - '0')
			hints.noise = &noise
		}
	}

	dir := filepath.ToSlash(strings.ToLower(filepath.Dir(paramPath)))
	for _, segment := range strings.Split(dir, "/") {
		for _, f := range []Family{FamilySE, FamilyPro, FamilyNose} {
			if segment == f.Dir() {
				family := f
				hints.family = &family
			}
		}
	}
	return hints
}
