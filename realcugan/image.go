package realcugan

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/getcharzp/go-upscale"
	"golang.org/x/image/draw"
)

// Bitmap 交错排列的像素数据, 每像素 Channels 字节
//
//	1: 灰度  2: 灰度 + Alpha  3: RGB  4: RGBA (非预乘)
type Bitmap struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// NewBitmap 创建空白的 Bitmap
func NewBitmap(width, height, channels int) *Bitmap {
	return &Bitmap{
		Pix:      make([]byte, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

func (b *Bitmap) check() error {
	if b == nil {
		return fmt.Errorf("%w: 图片为空", upscale.ErrConversion)
	}
	if b.Channels < 1 || b.Channels > 4 {
		return fmt.Errorf("%w: 不支持的通道数 %d, 可选值为 1, 2, 3, 4", upscale.ErrConversion, b.Channels)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: 无效的图片尺寸 %dx%d", upscale.ErrConversion, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("%w: 像素数据长度 %d 与尺寸 %dx%dx%d 不符",
			upscale.ErrConversion, len(b.Pix), b.Width, b.Height, b.Channels)
	}
	return nil
}

// PrepareBitmap 统一通道数: 灰度扩展为 RGB, 灰度 + Alpha 扩展为 RGBA, 其余不变
func PrepareBitmap(b *Bitmap) (*Bitmap, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	switch b.Channels {
	case 1:
		dst := NewBitmap(b.Width, b.Height, 3)
		for i, v := range b.Pix {
			dst.Pix[i*3+0] = v
			dst.Pix[i*3+1] = v
			dst.Pix[i*3+2] = v
		}
		return dst, nil
	case 2:
		dst := NewBitmap(b.Width, b.Height, 4)
		for i := 0; i < b.Width*b.Height; i++ {
			v, a := b.Pix[i*2], b.Pix[i*2+1]
			dst.Pix[i*4+0] = v
			dst.Pix[i*4+1] = v
			dst.Pix[i*4+2] = v
			dst.Pix[i*4+3] = a
		}
		return dst, nil
	default:
		return b, nil
	}
}

// Prepare 将解码后的图片转换为 3 或 4 通道的 Bitmap
//
// 行连续的 NRGBA 图片直接引用原像素, 不做拷贝.
func Prepare(img image.Image) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.NRGBA:
		if src.Stride == w*4 {
			return &Bitmap{Pix: src.Pix[:w*h*4], Width: w, Height: h, Channels: 4}
		}
		dst := NewBitmap(w, h, 4)
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*w*4:(y+1)*w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
		}
		return dst
	case *image.Gray:
		dst := NewBitmap(w, h, 3)
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				i := (y*w + x) * 3
				dst.Pix[i+0] = v
				dst.Pix[i+1] = v
				dst.Pix[i+2] = v
			}
		}
		return dst
	}

	if opaque(img) {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Copy(rgba, image.Point{}, img, bounds, draw.Src, nil)
		dst := NewBitmap(w, h, 3)
		for i := 0; i < w*h; i++ {
			copy(dst.Pix[i*3:i*3+3], rgba.Pix[i*4:i*4+3])
		}
		return dst
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Copy(nrgba, image.Point{}, img, bounds, draw.Src, nil)
	return &Bitmap{Pix: nrgba.Pix, Width: w, Height: h, Channels: 4}
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// Reconstruct 根据通道数将 Bitmap 还原为 image.Image
func Reconstruct(b *Bitmap) (image.Image, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	n := b.Width * b.Height

	switch b.Channels {
	case 1:
		return &image.Gray{Pix: b.Pix, Stride: b.Width, Rect: rect}, nil
	case 2:
		img := image.NewNRGBA(rect)
		for i := 0; i < n; i++ {
			v, a := b.Pix[i*2], b.Pix[i*2+1]
			img.Pix[i*4+0] = v
			img.Pix[i*4+1] = v
			img.Pix[i*4+2] = v
			img.Pix[i*4+3] = a
		}
		return img, nil
	case 3:
		img := image.NewRGBA(rect)
		for i := 0; i < n; i++ {
			copy(img.Pix[i*4:i*4+3], b.Pix[i*3:i*3+3])
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return &image.NRGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: rect}, nil
	}
}

// At 读取像素, 用于调试与测试
func (b *Bitmap) At(x, y int) color.NRGBA {
	i := (y*b.Width + x) * b.Channels
	switch b.Channels {
	case 1:
		return color.NRGBA{b.Pix[i], b.Pix[i], b.Pix[i], 0xff}
	case 2:
		return color.NRGBA{b.Pix[i], b.Pix[i], b.Pix[i], b.Pix[i+1]}
	case 3:
		return color.NRGBA{b.Pix[i], b.Pix[i+1], b.Pix[i+2], 0xff}
	default:
		return color.NRGBA{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
	}
}

// inputBuffer 直接引用 Bitmap 像素的输入缓冲区
func inputBuffer(b *Bitmap) (upscale.PixelBuffer, error) {
	if b != nil && (b.Width > math.MaxInt32 || b.Height > math.MaxInt32) {
		return upscale.PixelBuffer{}, fmt.Errorf("%w: %w: %dx%d",
			upscale.ErrConversion, upscale.ErrDimensionOverflow, b.Width, b.Height)
	}
	if err := b.check(); err != nil {
		return upscale.PixelBuffer{}, err
	}
	return upscale.PixelBuffer{
		Data: &b.Pix[0],
		W:    int32(b.Width),
		H:    int32(b.Height),
		C:    int32(b.Channels),
	}, nil
}

// outputBuffer 输出缓冲区, 数据由原生库分配
func outputBuffer(in upscale.PixelBuffer, scale int) (upscale.PixelBuffer, error) {
	w := int64(in.W) * int64(scale)
	h := int64(in.H) * int64(scale)
	if w > math.MaxInt32 || h > math.MaxInt32 {
		return upscale.PixelBuffer{}, fmt.Errorf("%w: %w: 输出尺寸 %dx%d",
			upscale.ErrConversion, upscale.ErrDimensionOverflow, w, h)
	}
	return upscale.PixelBuffer{
		W: int32(w),
		H: int32(h),
		C: in.C,
	}, nil
}
