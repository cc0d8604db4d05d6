package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath rejects upload targets that are empty or leave the resource root.
var ErrInvalidPath = errors.New("storage: invalid upload path")

// UploadTarget picks the relative path an upload is stored under: the caption
// when it names one, the document file name otherwise.
func UploadTarget(caption, fileName string) (string, error) {
	target := strings.TrimSpace(caption)
	if target == "" {
		target = strings.TrimSpace(fileName)
	}
	return CleanRelative(target)
}

// CleanRelative normalises a slash separated relative path and rejects
// absolute paths, parent references and directory-only targets.
func CleanRelative(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" || strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	clean := path.Clean(p)
	if clean == "." || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}

// SaveUpload writes r to rel under root through a temporary file renamed into
// place, so readers never observe a partial document. It returns the final
// absolute path and the number of bytes written.
func SaveUpload(root, rel string, r io.Reader) (string, int64, error) {
	clean, err := CleanRelative(rel)
	if err != nil {
		return "", 0, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", 0, fmt.Errorf("storage: resolve root: %w", err)
	}
	dst := filepath.Join(absRoot, filepath.FromSlash(clean))
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("storage: temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("storage: write %s: %w", clean, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("storage: chmod %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("storage: rename %s: %w", clean, err)
	}
	return dst, n, nil
}
