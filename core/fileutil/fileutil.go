// Package fileutil holds the file copy, backup and temp-file helpers the
// writers share.
package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// BackupSuffix is appended to a file's name to form its backup.
const BackupSuffix = ".bak"

// BackupPath returns the backup location for path.
func BackupPath(path string) string { return path + BackupSuffix }

// IsBackup reports whether path looks like a backup made by Backup.
func IsBackup(path string) bool { return strings.HasSuffix(path, BackupSuffix) }

// Backup copies path to its backup location unless a backup already exists.
// The first backup is never overwritten so it always holds the pristine file.
func Backup(path string) (created bool, err error) {
	dst := BackupPath(path)
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := CopyFile(path, dst); err != nil {
		return false, fmt.Errorf("backing up %s: %w", path, err)
	}
	return true, nil
}

// Restore copies the backup of path back over path.
func Restore(path string) error {
	return CopyFile(BackupPath(path), path)
}

// CopyFile copies src to dst, keeping the permission bits and
// modification time of src.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}

// TempSibling creates an empty temp file next to path with the same
// extension, so tools that infer the format from the name still work.
func TempSibling(path string) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+".gps-*"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// IsTemp reports whether path was made by TempSibling.
func IsTemp(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.Contains(base, ".gps-")
}

// ReplaceWith atomically moves tmp over path, carrying over path's
// permission bits first.
func ReplaceWith(tmp, path string) error {
	if fi, err := os.Stat(path); err == nil {
		if err := os.Chmod(tmp, fi.Mode().Perm()); err != nil {
			return err
		}
	}
	if err := atomic.ReplaceFile(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}
