//go:build !darwin && !linux

package upscale

import "fmt"

// Library 当前平台不支持 fmemopen, 无法以内存流加载模型
type Library struct {
	Native
}

// Open 当前平台不支持
func Open(path string) (*Library, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, path)
}

// Close 当前平台不支持
func (l *Library) Close() error {
	return nil
}
