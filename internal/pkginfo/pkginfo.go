// Package pkginfo declares where consumers find the parts of a published
// package and records that declaration next to the artifact.
package pkginfo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/internal/config"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the package info file written into the package output.
const FileName = "package_info.toml"

// Dirs lists the directories of one configuration, relative to the package
// root, using forward slashes.
type Dirs struct {
	LibDirs     []string `toml:"lib_dirs"`
	BinDirs     []string `toml:"bin_dirs"`
	IncludeDirs []string `toml:"include_dirs"`
}

// Layout maps each configuration to its directories.
type Layout map[build.Configuration]Dirs

// Describe returns the layout every package has, whatever was built.
func Describe() Layout {
	l := make(Layout, len(build.Configurations))
	for _, cfg := range build.Configurations {
		c := string(cfg)
		l[cfg] = Dirs{
			LibDirs:     []string{path.Join(c, "lib")},
			BinDirs:     []string{path.Join(c, "Plugins"), c},
			IncludeDirs: []string{path.Join(c, "include"), c},
		}
	}
	return l
}

// Info is the content of the package info file.
type Info struct {
	Package  config.Identity `toml:"package"`
	Version  string          `toml:"version"`
	Core     string          `toml:"core"`
	RunID    string          `toml:"run_id"`
	Created  time.Time       `toml:"created"`
	Settings config.Settings `toml:"settings"`
	Extras   []string        `toml:"extras,omitempty"`
	Layout   Layout          `toml:"layout"`
}

// Write stores info as dir/package_info.toml.
func Write(dir string, info *Info) (string, error) {
	data, err := toml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode package info: %w", err)
	}
	file := filepath.Join(dir, FileName)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return "", err
	}
	return file, nil
}

// Read loads the package info file from dir.
func Read(dir string) (*Info, error) {
	file := filepath.Join(dir, FileName)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := toml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &info, nil
}
