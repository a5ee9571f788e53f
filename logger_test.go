package upscale

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upscale.log")
	l, err := NewLogger(LogConfig{Level: "debug", FilePath: path})
	if err != nil {
		t.Fatalf("创建日志失败: %v", err)
	}
	SetLogger(l)
	defer SetLogger(nil)

	Logger().Debug("测试日志")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if !strings.Contains(string(data), "测试日志") || !strings.Contains(string(data), `"logger":"upscale"`) {
		t.Fatalf("日志内容错误: %s", data)
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "verbose"}); err == nil {
		t.Fatalf("无效的日志等级应返回错误")
	}
}

func TestDefaultLogger(t *testing.T) {
	SetLogger(nil)
	if Logger() == nil {
		t.Fatalf("默认日志不能为空")
	}
}
