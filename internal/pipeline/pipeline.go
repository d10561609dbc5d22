// Package pipeline runs the packaging phases of a plugin in order. Every
// phase takes its paths from the Pipeline and records its outcome in the
// build state, so phases may run in separate invocations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goplus/plugpack/internal/branchinfo"
	"github.com/goplus/plugpack/internal/config"
	"github.com/goplus/plugpack/internal/locate"
	"github.com/goplus/plugpack/internal/toolchain"
	"github.com/goplus/plugpack/internal/vcs"
	"github.com/goplus/plugpack/mod/module"
	"github.com/goplus/plugpack/pkgs/buildsys"
)

// Phase names, in execution order.
const (
	PhaseExport       = "export"
	PhaseVersion      = "version"
	PhaseRequirements = "requirements"
	PhaseGenerate     = "generate"
	PhaseBuild        = "build"
	PhasePackage      = "package"
	PhaseInfo         = "info"
	PhasePublish      = "publish"
)

// Build root subdirectories.
const (
	buildDirName   = "build"
	packageDirName = "package"
)

// ErrOutOfOrder is returned when a phase runs before the phase it depends on.
var ErrOutOfOrder = errors.New("phase out of order")

// PhaseError reports the phase a failure happened in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return e.Phase + ": " + e.Err.Error()
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Paths are the directories a pipeline works with. Nothing is derived from
// the working directory.
type Paths struct {
	RecipeDir string // plugin checkout holding plugpack.toml
	ExportDir string // receives the git path file
	BuildRoot string // build state, CMake project, staging and package trees
	OutputDir string // final package
}

func (p Paths) abs() (Paths, error) {
	for _, d := range []*string{&p.RecipeDir, &p.ExportDir, &p.BuildRoot, &p.OutputDir} {
		if *d == "" {
			return p, fmt.Errorf("missing directory in %+v", p)
		}
		a, err := filepath.Abs(*d)
		if err != nil {
			return p, err
		}
		*d = a
	}
	return p, nil
}

// workTreeReader is a BranchReader that also reports the root of the
// work tree containing a directory.
type workTreeReader interface {
	Toplevel(ctx context.Context, dir string) (string, error)
}

// Publisher stores a finished package where later builds can locate it.
type Publisher interface {
	Upload(ctx context.Context, v module.Version, dir string) error
}

// BuildSystemFunc creates the build system for the project at sourceDir
// generated into buildDir.
type BuildSystemFunc func(sourceDir, buildDir string, plan *toolchain.Plan) buildsys.BuildSystem

// Pipeline runs the phases for one plugin.
type Pipeline struct {
	cfg       *config.Config
	paths     Paths
	logger    *log.Logger
	branches  branchinfo.BranchReader
	locator   locate.Locator
	publisher Publisher
	newBS     BuildSystemFunc
	stdout    io.Writer
	stderr    io.Writer
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithBranchReader replaces git as the source of branch names.
func WithBranchReader(r branchinfo.BranchReader) Option {
	return func(p *Pipeline) { p.branches = r }
}

// WithLocator sets where requirements are located.
func WithLocator(l locate.Locator) Option {
	return func(p *Pipeline) { p.locator = l }
}

// WithPublisher sets where publish uploads the package.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithBuildSystem replaces CMake.
func WithBuildSystem(f BuildSystemFunc) Option {
	return func(p *Pipeline) { p.newBS = f }
}

// WithOutput sets where native tool output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// New returns a pipeline for cfg working in paths. Without WithLocator the
// store configured in cfg is opened.
func New(cfg *config.Config, paths Paths, opts ...Option) (*Pipeline, error) {
	paths, err := paths.abs()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		paths:  paths,
		logger: log.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.branches == nil {
		p.branches = vcs.NewGit()
	}
	if p.locator == nil {
		loc, pub, err := OpenStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		p.locator = loc
		if p.publisher == nil {
			p.publisher = pub
		}
	}
	return p, nil
}

// Paths returns the absolute paths the pipeline works with.
func (p *Pipeline) Paths() Paths {
	return p.paths
}

func (p *Pipeline) resolver() *branchinfo.Resolver {
	return branchinfo.NewResolver(p.branches, branchinfo.Convention{
		Kinds:       p.cfg.Branch.Kinds,
		CorePackage: p.cfg.Branch.CorePackage,
	})
}

func (p *Pipeline) buildDir() string {
	return filepath.Join(p.paths.BuildRoot, buildDirName)
}

func (p *Pipeline) packageRoot() string {
	return filepath.Join(p.paths.BuildRoot, packageDirName)
}

// phase runs f and tags its error with name.
func (p *Pipeline) phase(name string, f func() error) error {
	p.logger.Info("phase started", "phase", name)
	if err := f(); err != nil {
		return &PhaseError{Phase: name, Err: err}
	}
	p.logger.Debug("phase finished", "phase", name)
	return nil
}

// RunOptions selects the optional phases of Run.
type RunOptions struct {
	Publish bool
}

// Run executes every phase in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	if _, err := p.Export(ctx); err != nil {
		return err
	}
	steps := []func(context.Context) error{
		p.Requirements,
		p.Generate,
		p.Build,
		p.Package,
	}
	if opts.Publish {
		steps = append(steps, p.Publish)
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
