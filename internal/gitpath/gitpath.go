// Package gitpath persists the source path of a recipe across the export
// and build phases, which may run from different working directories.
package gitpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the name of the path file inside the export directory.
const FileName = "__gitpath.txt"

// ErrMissing is returned by Load when the export phase has not written the
// path file.
var ErrMissing = errors.New("git path file missing")

// Save records the absolute form of sourceDir in exportDir.
func Save(exportDir, sourceDir string) (string, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(exportDir, FileName)
	if err := os.WriteFile(file, []byte(abs+"\n"), 0o644); err != nil {
		return "", err
	}
	return file, nil
}

// Load returns the source path recorded in exportDir.
func Load(exportDir string) (string, error) {
	file := filepath.Join(exportDir, FileName)
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s (run export first)", ErrMissing, file)
	}
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(string(data))
	if path == "" || strings.ContainsRune(path, '\n') {
		return "", fmt.Errorf("%s: want a single non-empty line", file)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%s: %q is not an absolute path", file, path)
	}
	return path, nil
}
