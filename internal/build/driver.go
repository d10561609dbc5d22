// Package build drives the Debug and Release build/install cycles of the
// plugin against one generated CMake project.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/goplus/plugpack/internal/toolchain"
	"github.com/goplus/plugpack/pkgs/buildsys"
	"github.com/goplus/plugpack/x/cmake"
)

// ErrBuildFailure is returned when configuring, compiling or installing
// either configuration fails.
var ErrBuildFailure = errors.New("build failed")

// Options configures a Driver.
type Options struct {
	SourceRoot    string            // checked-out plugin sources
	BuildDir      string            // generated CMake project
	InstallDir    string            // working install tree, one subtree per configuration
	ToolchainFile string            // written by toolchain.Plan.WriteFile
	Env           map[string]string // extra environment for every tool invocation
	Logger        *log.Logger
	Stdout        io.Writer
	Stderr        io.Writer

	// NewBuildSystem overrides the CMake build system.
	NewBuildSystem func(sourceDir string, plan *toolchain.Plan) buildsys.BuildSystem
}

// Driver runs the dual-configuration build.
type Driver struct {
	opts    Options
	newBS   func(sourceDir string, plan *toolchain.Plan) buildsys.BuildSystem
	onBuilt func(Configuration) error
}

// NewDriver returns a Driver using CMake.
func NewDriver(opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	d := &Driver{opts: opts}
	d.newBS = d.newCMake
	if opts.NewBuildSystem != nil {
		d.newBS = opts.NewBuildSystem
	}
	return d
}

// OnBuilt registers f to run after each configuration is built and
// installed. An error from f stops the build.
func (d *Driver) OnBuilt(f func(Configuration) error) {
	d.onBuilt = f
}

func (d *Driver) newCMake(sourceDir string, plan *toolchain.Plan) buildsys.BuildSystem {
	c := cmake.New(sourceDir, d.opts.BuildDir)
	c.Generator(plan.Generator)
	if d.opts.ToolchainFile != "" {
		c.Toolchain(d.opts.ToolchainFile)
	}
	for k, v := range d.opts.Env {
		c.Env(k, v)
	}
	c.Verbose(true)
	c.Output(d.opts.Stdout, d.opts.Stderr)
	return c
}

// BuildAll configures the project at <SourceRoot>/<sourceSubfolder> and then
// builds and installs Debug followed by Release. Single-config generators
// are reconfigured for each configuration. The first failure stops the
// build.
func (d *Driver) BuildAll(ctx context.Context, plan *toolchain.Plan, sourceSubfolder string) error {
	src := filepath.Join(d.opts.SourceRoot, sourceSubfolder)
	bs := d.newBS(src, plan)
	logger := d.opts.Logger

	multi := plan.MultiConfig()
	if multi {
		logger.Info("configuring", "source", src, "generator", generatorName(plan))
		if err := bs.Configure(ctx); err != nil {
			return fmt.Errorf("%w: configure: %w", ErrBuildFailure, err)
		}
	}

	for _, cfg := range Configurations {
		if !multi {
			logger.Info("configuring", "source", src, "generator", generatorName(plan), "config", cfg)
			if err := bs.Configure(ctx, "-DCMAKE_BUILD_TYPE="+string(cfg)); err != nil {
				return fmt.Errorf("%w: configure %s: %w", ErrBuildFailure, cfg, err)
			}
		}

		logger.Info("building", "config", cfg)
		if err := bs.Build(ctx, string(cfg)); err != nil {
			return fmt.Errorf("%w: build %s: %w", ErrBuildFailure, cfg, err)
		}

		prefix := ""
		if d.opts.InstallDir != "" {
			prefix = filepath.Join(d.opts.InstallDir, string(cfg))
		}
		logger.Info("installing", "config", cfg, "prefix", prefix)
		if err := bs.Install(ctx, string(cfg), prefix); err != nil {
			return fmt.Errorf("%w: install %s: %w", ErrBuildFailure, cfg, err)
		}

		if d.onBuilt != nil {
			if err := d.onBuilt(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

func generatorName(plan *toolchain.Plan) string {
	if plan.Generator == "" {
		return "default"
	}
	return plan.Generator
}
