package upscale

import (
	"errors"
	"runtime"
	"strings"
	"testing"
	"unsafe"
)

func TestPixelBufferLayout(t *testing.T) {
	var b PixelBuffer
	if unsafe.Offsetof(b.W) != unsafe.Sizeof(uintptr(0)) {
		t.Fatalf("W 偏移 = %d", unsafe.Offsetof(b.W))
	}
	if unsafe.Offsetof(b.C)-unsafe.Offsetof(b.W) != 8 {
		t.Fatalf("字段布局与 C 结构体不一致")
	}
	b = PixelBuffer{W: 3, H: 2, C: 4}
	if b.Len() != 24 {
		t.Fatalf("Len = %d, 期望 24", b.Len())
	}
}

func TestInitEmptyPath(t *testing.T) {
	if _, err := Init(LibConfig{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("期望 ErrConfiguration, 得到 %v", err)
	}
}

func TestOpenMissingLibrary(t *testing.T) {
	if _, err := Open("./lib/not-exist.so"); err == nil {
		t.Fatalf("打开不存在的动态库应返回错误")
	}
}

func TestDefaultLibraryPath(t *testing.T) {
	path := DefaultLibraryPath()
	if !strings.HasPrefix(path, "./lib/") {
		t.Fatalf("路径错误: %s", path)
	}
	switch runtime.GOOS {
	case "linux":
		if !strings.HasSuffix(path, "_"+runtime.GOARCH+".so") {
			t.Fatalf("路径错误: %s", path)
		}
	case "darwin":
		if !strings.HasSuffix(path, ".dylib") {
			t.Fatalf("路径错误: %s", path)
		}
	case "windows":
		if path != "./lib/realcugan.dll" {
			t.Fatalf("路径错误: %s", path)
		}
	}
}

func TestNativeError(t *testing.T) {
	var err error = &NativeError{Op: "realcugan_process", Code: -3}
	var target *NativeError
	if !errors.As(err, &target) || target.Code != -3 {
		t.Fatalf("errors.As 失败")
	}
	if !strings.Contains(err.Error(), "-3") {
		t.Fatalf("错误信息: %s", err)
	}
}
