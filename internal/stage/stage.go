// Package stage copies a required package's installed tree to the location
// the plugin build expects it at.
package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrStaging is returned when the source tree is missing or the destination
// already exists.
var ErrStaging = errors.New("staging failed")

// DefaultDirName is the staging directory below the build root when no
// override is given. Build scripts rely on this name.
const DefaultDirName = "install"

// ResolveDest returns override when set, otherwise <buildRoot>/install.
func ResolveDest(override, buildRoot string) string {
	if override != "" {
		return override
	}
	return filepath.Join(buildRoot, DefaultDirName)
}

// Stage copies the tree at src to dst. dst must not exist: a fresh copy is
// made for every build and a leftover directory from an earlier run is an
// error.
func Stage(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: source %s: %v", ErrStaging, src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source %s is not a directory", ErrStaging, src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: destination %s already exists", ErrStaging, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: destination %s: %v", ErrStaging, dst, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStaging, err)
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return fmt.Errorf("%w: copy %s to %s: %v", ErrStaging, src, dst, err)
	}
	return nil
}
