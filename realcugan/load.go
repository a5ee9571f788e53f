package realcugan

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/getcharzp/go-upscale"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig 读取 YAML 配置, 未填写的字段使用 DefaultConfig
//
//	lib_path: ./lib/librealcugan_amd64.so
//	preset: se-2x-conservative
//	device: 0
//	tile_size: 200
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: 读取配置文件失败: %w", upscale.ErrConfiguration, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: 解析配置文件失败: %w", upscale.ErrConfiguration, err)
	}
	return cfg, nil
}

// 环境变量
const (
	EnvLibPath   = "REALCUGAN_LIB_PATH"
	EnvDevice    = "REALCUGAN_DEVICE" // GPU 编号或 cpu
	EnvThreads   = "REALCUGAN_THREADS"
	EnvTTA       = "REALCUGAN_TTA"
	EnvTileSize  = "REALCUGAN_TILE_SIZE"
	EnvSyncGap   = "REALCUGAN_SYNC_GAP"
	EnvScale     = "REALCUGAN_SCALE"
	EnvNoise     = "REALCUGAN_NOISE"
	EnvFamily    = "REALCUGAN_FAMILY"
	EnvPreset    = "REALCUGAN_PRESET"
	EnvModelDir  = "REALCUGAN_MODEL_DIR"
	EnvParamPath = "REALCUGAN_PARAM_PATH"
	EnvBinPath   = "REALCUGAN_BIN_PATH"
)

// ApplyEnv 使用环境变量覆盖配置
//
// files 为可选的 .env 文件, 文件中的值优先级低于进程环境变量.
func ApplyEnv(cfg Config, files ...string) (Config, error) {
	values := map[string]string{}
	if len(files) > 0 {
		fileValues, err := godotenv.Read(files...)
		if err != nil {
			return cfg, fmt.Errorf("%w: 读取 env 文件失败: %w", upscale.ErrConfiguration, err)
		}
		values = fileValues
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	var errs []string
	setInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q", key, v))
			return
		}
		*dst = n
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setString(EnvLibPath, &cfg.LibPath)
	setString(EnvModelDir, &cfg.ModelDir)
	setString(EnvParamPath, &cfg.ParamPath)
	setString(EnvBinPath, &cfg.BinPath)

	if v, ok := lookup(EnvDevice); ok && strings.EqualFold(strings.TrimSpace(v), "cpu") {
		cfg.Device = upscale.CPUDevice
	} else {
		setInt(EnvDevice, &cfg.Device)
	}
	setInt(EnvThreads, &cfg.NumThreads)
	setInt(EnvTileSize, &cfg.TileSize)

	var syncGap, scale, noise = int(cfg.SyncGap), int(cfg.Scale), int(cfg.Noise)
	setInt(EnvSyncGap, &syncGap)
	setInt(EnvScale, &scale)
	setInt(EnvNoise, &noise)
	cfg.SyncGap, cfg.Scale, cfg.Noise = SyncGap(syncGap), Scale(scale), Noise(noise)

	if v, ok := lookup(EnvTTA); ok && v != "" {
		tta, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q", EnvTTA, v))
		} else {
			cfg.TTA = tta
		}
	}
	if v, ok := lookup(EnvFamily); ok && v != "" {
		cfg.Family = Family(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup(EnvPreset); ok && v != "" {
		p, err := ParsePreset(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q", EnvPreset, v))
		} else {
			cfg.Preset = p
		}
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: 无效的环境变量 %s", upscale.ErrConfiguration, strings.Join(errs, ", "))
	}
	return cfg, nil
}
