package realcugan

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/getcharzp/go-upscale"
)

func TestPrepareBitmap(t *testing.T) {
	gray := &Bitmap{Pix: []byte{10, 20, 30, 40}, Width: 2, Height: 2, Channels: 1}
	rgb, err := PrepareBitmap(gray)
	if err != nil {
		t.Fatal(err)
	}
	if rgb.Channels != 3 || len(rgb.Pix) != 12 {
		t.Fatalf("灰度图应扩展为 3 通道, 得到 %d", rgb.Channels)
	}
	if c := rgb.At(1, 1); c != (color.NRGBA{40, 40, 40, 255}) {
		t.Fatalf("像素值错误: %v", c)
	}

	grayAlpha := &Bitmap{Pix: []byte{10, 100, 20, 200}, Width: 2, Height: 1, Channels: 2}
	rgba, err := PrepareBitmap(grayAlpha)
	if err != nil {
		t.Fatal(err)
	}
	if rgba.Channels != 4 {
		t.Fatalf("灰度 + Alpha 应扩展为 4 通道, 得到 %d", rgba.Channels)
	}
	if c := rgba.At(1, 0); c != (color.NRGBA{20, 20, 20, 200}) {
		t.Fatalf("像素值错误: %v", c)
	}

	same := NewBitmap(3, 3, 4)
	if got, _ := PrepareBitmap(same); got != same {
		t.Fatalf("4 通道图片不应拷贝")
	}
}

func TestBitmapCheck(t *testing.T) {
	bad := []*Bitmap{
		nil,
		{Pix: make([]byte, 10), Width: 1, Height: 2, Channels: 5},
		{Pix: make([]byte, 4), Width: 2, Height: 2, Channels: 3},
		{Width: 0, Height: 2, Channels: 3},
	}
	for _, b := range bad {
		if _, err := PrepareBitmap(b); !errors.Is(err, upscale.ErrConversion) {
			t.Fatalf("期望 ErrConversion, 得到 %v", err)
		}
		if _, err := Reconstruct(b); !errors.Is(err, upscale.ErrConversion) {
			t.Fatalf("期望 ErrConversion, 得到 %v", err)
		}
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		channels int
		pix      []byte
		want     color.NRGBA
	}{
		{1, []byte{77}, color.NRGBA{77, 77, 77, 255}},
		{2, []byte{77, 128}, color.NRGBA{77, 77, 77, 128}},
		{3, []byte{1, 2, 3}, color.NRGBA{1, 2, 3, 255}},
		{4, []byte{1, 2, 3, 4}, color.NRGBA{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		img, err := Reconstruct(&Bitmap{Pix: tt.pix, Width: 1, Height: 1, Channels: tt.channels})
		if err != nil {
			t.Fatalf("%d 通道还原失败: %v", tt.channels, err)
		}
		got := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
		if got != tt.want {
			t.Fatalf("%d 通道像素 = %v, 期望 %v", tt.channels, got, tt.want)
		}
	}
}

func TestPrepare(t *testing.T) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	nrgba.SetNRGBA(2, 1, color.NRGBA{9, 8, 7, 6})
	b := Prepare(nrgba)
	if b.Channels != 4 || &b.Pix[0] != &nrgba.Pix[0] {
		t.Fatalf("行连续的 NRGBA 应直接引用原像素")
	}
	if b.At(2, 1) != (color.NRGBA{9, 8, 7, 6}) {
		t.Fatalf("像素值错误: %v", b.At(2, 1))
	}

	sub := nrgba.SubImage(image.Rect(1, 0, 3, 2)).(*image.NRGBA)
	b = Prepare(sub)
	if b.Width != 2 || b.Channels != 4 || b.At(1, 1) != (color.NRGBA{9, 8, 7, 6}) {
		t.Fatalf("子图转换错误: %+v", b.At(1, 1))
	}

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 99})
	b = Prepare(gray)
	if b.Channels != 3 || b.At(1, 0) != (color.NRGBA{99, 99, 99, 255}) {
		t.Fatalf("灰度图转换错误")
	}

	ycbcr := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	if b = Prepare(ycbcr); b.Channels != 3 || len(b.Pix) != 4*4*3 {
		t.Fatalf("不透明图片应转换为 3 通道")
	}
}

func TestBufferOverflow(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("32 位平台")
	}
	width := int64(math.MaxInt32) + 1
	huge := &Bitmap{Width: int(width), Height: 1, Channels: 3}
	_, err := inputBuffer(huge)
	if !errors.Is(err, upscale.ErrDimensionOverflow) || !errors.Is(err, upscale.ErrConversion) {
		t.Fatalf("期望 ErrDimensionOverflow, 得到 %v", err)
	}

	in := upscale.PixelBuffer{W: math.MaxInt32 / 2, H: 1, C: 3}
	if _, err := outputBuffer(in, 4); !errors.Is(err, upscale.ErrDimensionOverflow) {
		t.Fatalf("期望 ErrDimensionOverflow, 得到 %v", err)
	}
	out, err := outputBuffer(upscale.PixelBuffer{W: 10, H: 20, C: 4}, 3)
	if err != nil || out.W != 30 || out.H != 60 || out.C != 4 {
		t.Fatalf("输出缓冲区错误: %+v, %v", out, err)
	}
}
