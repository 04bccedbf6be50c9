package xfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDirPerm EnsureDir 创建目录使用的权限
const DefaultDirPerm = 0o750

// hasDotDotSegment 判断路径是否含有独立的 ".." 段，'/' 与 '\' 均视为分隔符。
func hasDotDotSegment(path string) bool {
	for seg := range strings.FieldsFuncSeq(path, isSeparator) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func checkRaw(kind, p string) error {
	if p == "" {
		return fmt.Errorf("%s is required: %w", kind, ErrEmptyPath)
	}
	if strings.IndexByte(p, 0) >= 0 {
		return fmt.Errorf("%s: %w", kind, ErrNullByte)
	}
	return nil
}

// SanitizePath 规范化文件路径。
//
// 拒绝空路径、空字节、以分隔符结尾的目录路径和相对路径穿越。
// 绝对路径中的 ".." 会被 filepath.Clean 正常消解，不视为穿越；
// 需要限制在某个目录内时使用 [SafeJoin]。
func SanitizePath(filename string) (string, error) {
	if err := checkRaw("filename", filename); err != nil {
		return "", err
	}
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, "\\") {
		return "", fmt.Errorf("path %q is a directory: %w", filename, ErrInvalidPath)
	}

	cleaned := filepath.Clean(filename)
	if hasDotDotSegment(cleaned) {
		return "", fmt.Errorf("path %q: %w", filename, ErrPathTraversal)
	}
	return cleaned, nil
}

// SafeJoin 把相对路径 rel 拼接到绝对根目录 base 下。
//
// rel 为绝对路径、Windows 风格盘符路径或包含 ".." 段时返回错误。
// 不解析符号链接，需要时使用 [ResolveIn]。
func SafeJoin(base, rel string) (string, error) {
	if err := checkRaw("base", base); err != nil {
		return "", err
	}
	if err := checkRaw("path", rel); err != nil {
		return "", err
	}

	cleanBase := filepath.Clean(base)
	if !filepath.IsAbs(cleanBase) {
		return "", fmt.Errorf("base %q must be absolute: %w", base, ErrInvalidPath)
	}
	if filepath.IsAbs(rel) || isWindowsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative: %w", rel, ErrInvalidPath)
	}
	cleanRel := filepath.Clean(rel)
	if hasDotDotSegment(cleanRel) {
		return "", fmt.Errorf("path %q: %w", rel, ErrPathTraversal)
	}

	joined := filepath.Join(cleanBase, cleanRel)
	if !within(cleanBase, joined) {
		return "", ErrPathEscaped
	}
	return joined, nil
}

// ResolveIn 与 SafeJoin 相同，但会解析 base 与结果路径上的符号链接，
// 并校验真实路径仍在 base 内。base 必须存在，目标文件可以不存在。
//
// 校验与后续文件操作之间存在 TOCTOU 窗口，适用于可信目录。
func ResolveIn(base, rel string) (string, error) {
	joined, err := SafeJoin(base, rel)
	if err != nil {
		return "", err
	}
	realBase, err := filepath.EvalSymlinks(filepath.Clean(base))
	if err != nil {
		return "", fmt.Errorf("resolve base %q: %w", base, err)
	}

	realPath, err := filepath.EvalSymlinks(joined)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		// 目标不存在时解析其父目录
		dir, derr := filepath.EvalSymlinks(filepath.Dir(joined))
		if derr != nil {
			return "", fmt.Errorf("resolve %q: %w", rel, derr)
		}
		realPath = filepath.Join(dir, filepath.Base(joined))
	default:
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}

	if !within(realBase, realPath) {
		return "", fmt.Errorf("path %q: %w", rel, ErrPathEscaped)
	}
	return realPath, nil
}

// EnsureDir 确保 filename 的父目录存在，权限为 DefaultDirPerm。
// 会跟随符号链接；不可信输入应先经 SanitizePath 或 SafeJoin 校验。
func EnsureDir(filename string) error {
	if err := checkRaw("filename", filename); err != nil {
		return err
	}
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, DefaultDirPerm)
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	return err == nil && !hasDotDotSegment(rel)
}

// isWindowsAbs 识别 "C:..."、"\..." 与 UNC 形式，非 Windows 平台上同样拒绝。
func isWindowsAbs(p string) bool {
	if len(p) >= 2 && p[1] == ':' {
		c := p[0] | 0x20
		return c >= 'a' && c <= 'z'
	}
	return p[0] == '\\'
}
