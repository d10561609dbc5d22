// Package pack assembles the per-configuration installs of a built plugin
// into the final package tree.
package pack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/pkgs/buildsys"
)

// ErrPackaging is returned when installing a configuration into the package
// root or copying the result fails.
var ErrPackaging = errors.New("packaging failed")

// Subdirectories every configuration folder of a package contains.
var layoutDirs = []string{"lib", "Plugins", "include"}

// Artifact is an assembled package.
type Artifact struct {
	Root           string
	Configurations []build.Configuration
	// Extras are files added by compiler hooks, relative to Root.
	Extras []string
}

// Hook finishes an artifact for a specific compiler.
type Hook func(ctx context.Context, buildRoot string, a *Artifact) error

// Assembler installs each configuration into a package root and copies it
// to the output directory.
type Assembler struct {
	bs       buildsys.BuildSystem
	compiler string
	hooks    map[string][]Hook
	logger   *log.Logger
}

// NewAssembler returns an Assembler for artifacts built by compiler, with
// the built-in hooks registered.
func NewAssembler(bs buildsys.BuildSystem, compiler string, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.Default()
	}
	a := &Assembler{
		bs:       bs,
		compiler: compiler,
		hooks:    map[string][]Hook{},
		logger:   logger,
	}
	for _, c := range pdbCompilers {
		a.RegisterHook(c, CollectPDB)
	}
	return a
}

// RegisterHook adds h to the hooks run for compiler. Compiler names match
// case-insensitively.
func (a *Assembler) RegisterHook(compiler string, h Hook) {
	key := strings.ToLower(compiler)
	a.hooks[key] = append(a.hooks[key], h)
}

// Assemble clears packageRoot, installs Debug and Release into
// <packageRoot>/<config>, copies packageRoot to outputDir and runs the
// hooks of the active compiler.
func (a *Assembler) Assemble(ctx context.Context, buildRoot, packageRoot, outputDir string) (*Artifact, error) {
	if err := checkEmpty(outputDir); err != nil {
		return nil, err
	}
	// Leftovers from an earlier run must not reach the output.
	if err := os.RemoveAll(packageRoot); err != nil {
		return nil, fmt.Errorf("%w: clear %s: %v", ErrPackaging, packageRoot, err)
	}

	for _, cfg := range build.Configurations {
		prefix := filepath.Join(packageRoot, string(cfg))
		a.logger.Info("installing for packaging", "config", cfg, "prefix", prefix)
		if err := a.bs.Install(ctx, string(cfg), prefix); err != nil {
			return nil, fmt.Errorf("%w: install %s: %w", ErrPackaging, cfg, err)
		}
	}
	for _, cfg := range build.Configurations {
		for _, d := range layoutDirs {
			if err := os.MkdirAll(filepath.Join(packageRoot, string(cfg), d), 0o755); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
			}
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
	}
	if err := os.CopyFS(outputDir, os.DirFS(packageRoot)); err != nil {
		return nil, fmt.Errorf("%w: copy %s to %s: %v", ErrPackaging, packageRoot, outputDir, err)
	}

	art := &Artifact{
		Root:           outputDir,
		Configurations: slices.Clone(build.Configurations),
	}
	for _, h := range a.hooks[strings.ToLower(a.compiler)] {
		if err := h(ctx, buildRoot, art); err != nil {
			return nil, fmt.Errorf("%w: %s hook: %w", ErrPackaging, a.compiler, err)
		}
	}
	a.logger.Info("package assembled", "root", outputDir, "extras", len(art.Extras))
	return art, nil
}

// checkEmpty fails when dir exists and holds anything.
func checkEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackaging, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: output %s is not empty", ErrPackaging, dir)
	}
	return nil
}
