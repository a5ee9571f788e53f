package upscale

import (
	"errors"
	"fmt"
)

// 错误类型, 使用 errors.Is 判断
var (
	ErrConfiguration = errors.New("upscale: 配置错误")
	ErrDevice        = errors.New("upscale: 设备错误")
	ErrLoad          = errors.New("upscale: 模型加载失败")
	ErrProcessing    = errors.New("upscale: 图片处理失败")
	ErrConversion    = errors.New("upscale: 图片转换失败")
	ErrHandle        = errors.New("upscale: 无效的句柄")

	ErrInvalidScale        = errors.New("upscale: 无效的放大倍数")
	ErrDimensionOverflow   = errors.New("upscale: 图片尺寸超出 int32 范围")
	ErrUnsupportedPlatform = errors.New("upscale: 当前平台不支持加载动态库")
)

// NativeError 原生库返回的非零状态码
type NativeError struct {
	Op   string // 调用的原生函数
	Code int32  // 返回的状态码
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s 返回状态码 %d", e.Op, e.Code)
}
