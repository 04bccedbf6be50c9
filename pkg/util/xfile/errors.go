package xfile

import "errors"

var (
	// ErrEmptyPath 必需的路径参数为空
	ErrEmptyPath = errors.New("xfile: path is required")

	// ErrInvalidPath 路径格式无效（目录路径、非绝对根目录等）
	ErrInvalidPath = errors.New("xfile: invalid path")

	// ErrPathTraversal 路径中包含 ".." 段
	ErrPathTraversal = errors.New("xfile: path traversal detected")

	// ErrPathEscaped 结果路径超出根目录
	ErrPathEscaped = errors.New("xfile: path escapes base directory")

	// ErrNullByte 路径中包含空字节
	ErrNullByte = errors.New("xfile: path contains null byte")
)
