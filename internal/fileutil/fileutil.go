package fileutil

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WriteAtomic streams r into a temp file beside path and renames it into place
// with mode 0o644. A failed write leaves no partial file behind.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return 0, fmt.Errorf("write %s: %w", path, copyErr)
		}
		return 0, fmt.Errorf("close %s: %w", path, closeErr)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("rename into %s: %w", path, err)
	}
	return written, nil
}

var fileNameReplacer = strings.NewReplacer(
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SafeName reduces a server-supplied file name to a local base name.
// Directory parts are dropped, colons and asterisks become dashes and other
// unsafe characters are removed. Returns "" when nothing usable remains.
func SafeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(fileNameReplacer.Replace(path.Base(name)))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
