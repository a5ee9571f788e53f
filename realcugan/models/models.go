// Package models 提供编译进二进制的 Real-CUGAN 模型
//
// 默认不包含任何模型. 将模型放到本目录后使用 -tags embed_models 编译:
//
//	realcugan/models/models-se/up2x-conservative.param
//	realcugan/models/models-se/up2x-conservative.bin
//	...
package models

import "io/fs"

var embedded fs.FS

// FS 编译进二进制的模型, 未使用 embed_models 编译时返回 nil
func FS() fs.FS {
	return embedded
}
