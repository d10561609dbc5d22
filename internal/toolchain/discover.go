package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// MarkerFile identifies a usable Qt installation: it lives at
// <root>/lib/cmake/Qt6/Qt6Config.cmake.
const MarkerFile = "Qt6Config.cmake"

// ErrDiscovery is returned when the framework root is missing or ambiguous.
var ErrDiscovery = errors.New("toolchain discovery failed")

// DiscoverRoot finds the single marker file below pkgRoot and returns its
// great-grandparent directory.
func DiscoverRoot(pkgRoot string) (string, error) {
	var found []string
	err := filepath.WalkDir(pkgRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == MarkerFile {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: no %s below %s", ErrDiscovery, MarkerFile, pkgRoot)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d copies of %s below %s: %v", ErrDiscovery, len(found), MarkerFile, pkgRoot, found)
	}
	root := found[0]
	for i := 0; i < 4; i++ {
		root = filepath.Dir(root)
	}
	return root, nil
}
