package realcugan

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/getcharzp/go-upscale"
	"github.com/up-zero/gotool/imageutil"
)

// ProcessBytes 解码图片, 超分后按原格式编码
//
// 无法编码的格式 (webp) 输出为 png.
func (e *Engine) ProcessBytes(data []byte) ([]byte, error) {
	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	out, err := e.Process(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodeImage(&buf, out, format, DefaultJPEGQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProcessPath 读取图片文件并超分
func (e *Engine) ProcessPath(path string) (image.Image, error) {
	img, err := imageutil.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开图片失败: %w", upscale.ErrConversion, err)
	}
	return e.Process(img)
}

// ProcessFile 超分 srcPath 并保存到 dstPath, 格式由 dstPath 扩展名决定, 输出目录不存在时自动创建
//
// # Params:
//
//	srcPath: 输入图片路径
//	dstPath: 输出图片路径
//	quality: 压缩质量 1 ~ 100, 用于 jpg / png
func (e *Engine) ProcessFile(srcPath, dstPath string, quality int) error {
	out, err := e.ProcessPath(srcPath)
	if err != nil {
		return err
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	switch filepath.Ext(dstPath) {
	case ".jpg", ".jpeg", ".png":
		if err := imageutil.Save(dstPath, out, quality); err != nil {
			return fmt.Errorf("%w: 保存图片失败: %w", upscale.ErrConversion, err)
		}
		return nil
	}

	// imageutil.Save 不支持的格式
	if err := os.MkdirAll(filepath.Dir(dstPath), os.ModePerm); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := EncodeImage(f, out, FormatFromPath(dstPath), quality); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
