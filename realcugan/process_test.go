package realcugan

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/getcharzp/go-upscale"
)

func TestProcessBytes(t *testing.T) {
	native := newFakeNative(1, 2000)
	_, engine := newTestEngine(t, native, 0)
	defer engine.Destroy()

	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(0, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	data, err := engine.ProcessBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ProcessBytes 失败: %v", err)
	}
	out, format, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("解码输出失败: %v", err)
	}
	if format != FormatPNG {
		t.Fatalf("输出格式 = %s, 期望 png", format)
	}
	if b := out.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Fatalf("输出尺寸 %dx%d 错误", b.Dx(), b.Dy())
	}
	got := color.NRGBAModel.Convert(out.At(1, 3)).(color.NRGBA)
	if got != (color.NRGBA{R: 200, G: 100, B: 50, A: 128}) {
		t.Fatalf("像素值错误: %v", got)
	}
}

func TestProcessBytesInvalid(t *testing.T) {
	native := newFakeNative(1, 2000)
	_, engine := newTestEngine(t, native, 0)
	defer engine.Destroy()

	if _, err := engine.ProcessBytes([]byte("not an image")); !errors.Is(err, upscale.ErrConversion) {
		t.Fatalf("期望 ErrConversion, 得到 %v", err)
	}
}

func TestProcessFile(t *testing.T) {
	native := newFakeNative(0, 0)
	_, engine := newTestEngine(t, native, upscale.CPUDevice)
	defer engine.Destroy()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "in.png")
	f, err := os.Create(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// 输出目录不存在时自动创建
	for _, name := range []string{"out.jpg", "out.bmp", "out.tiff", "out.gif", "out.png", "OUT.JPG"} {
		dstPath := filepath.Join(dir, "result", name)
		if err := engine.ProcessFile(srcPath, dstPath, 90); err != nil {
			t.Fatalf("%s 保存失败: %v", name, err)
		}
		data, err := os.ReadFile(dstPath)
		if err != nil {
			t.Fatal(err)
		}
		img, format, err := DecodeImage(data)
		if err != nil {
			t.Fatalf("%s 解码失败: %v", name, err)
		}
		if format != FormatFromPath(name) {
			t.Fatalf("%s 格式 = %s", name, format)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
			t.Fatalf("%s 尺寸 %dx%d 错误", name, b.Dx(), b.Dy())
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.JPG":  FormatJPEG,
		"a.jpeg": FormatJPEG,
		"a.tif":  FormatTIFF,
		"a.webp": FormatWEBP,
		"a.bmp":  FormatBMP,
		"a":      FormatPNG,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Fatalf("FormatFromPath(%s) = %s, 期望 %s", path, got, want)
		}
	}
}
