package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// 测试通过替换它模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径已被目录占用，无法写成文件。
type PathTypeConflictError struct {
	Path string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径是目录：%q", e.Path)
}

// WriteFile 原子写入 path：同目录临时文件写完并 fsync 后 rename 覆盖。
// 读者只会看到旧内容或完整的新内容，中断的运行不会留下半截缓存页。
func WriteFile(path string, data []byte) error {
	path = filepath.Clean(path)
	if fi, err := os.Lstat(path); err == nil && fi.IsDir() {
		return &PathTypeConflictError{Path: path}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// 前缀 '.' 且无 .page 后缀，不会被当成缓存条目。
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	// *os.File.Write 在短写时一定返回错误。
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, path); err != nil {
		return err
	}
	committed = true

	syncDir(dir)
	return nil
}

// syncDir 让 rename 本身落盘；失败不影响已写入的内容。
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
