package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/goplus/plugpack/internal/branchinfo"
	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/internal/config"
	"github.com/goplus/plugpack/internal/gitpath"
	"github.com/goplus/plugpack/internal/pack"
	"github.com/goplus/plugpack/internal/pkginfo"
	"github.com/goplus/plugpack/internal/stage"
	"github.com/goplus/plugpack/internal/toolchain"
	"github.com/goplus/plugpack/mod/module"
	"github.com/goplus/plugpack/pkgs/buildsys"
	"github.com/goplus/plugpack/x/cmake"
)

// Export records the recipe checkout in the export directory and starts a
// new build state tagged with a fresh run ID. With git as the branch
// reader, the recipe must sit inside a work tree, whose root is recorded.
func (p *Pipeline) Export(ctx context.Context) (runID string, err error) {
	err = p.phase(PhaseExport, func() error {
		st := &build.State{
			RunID:     uuid.NewString(),
			ExportDir: p.paths.ExportDir,
		}
		if wt, ok := p.branches.(workTreeReader); ok {
			top, err := wt.Toplevel(ctx, p.paths.RecipeDir)
			if err != nil {
				return fmt.Errorf("%s is not in a git work tree: %w", p.paths.RecipeDir, err)
			}
			st.WorkTree = top
		}
		file, err := gitpath.Save(p.paths.ExportDir, p.paths.RecipeDir)
		if err != nil {
			return err
		}
		if err := build.SaveState(p.paths.BuildRoot, st); err != nil {
			return err
		}
		runID = st.RunID
		p.logger.Info("exported", "source", p.paths.RecipeDir, "work_tree", st.WorkTree, "path_file", file, "run", runID)
		return nil
	})
	return
}

// Version resolves the version information of the recipe checkout.
func (p *Pipeline) Version(ctx context.Context) (info branchinfo.Info, err error) {
	err = p.phase(PhaseVersion, func() error {
		info, err = p.resolver().Resolve(ctx, p.paths.RecipeDir)
		return err
	})
	return
}

// Requirements resolves the version through the exported path file and
// locates the core and framework packages.
func (p *Pipeline) Requirements(ctx context.Context) error {
	return p.phase(PhaseRequirements, func() error {
		st, err := build.LoadState(p.paths.BuildRoot)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOutOfOrder, err)
		}
		source, err := gitpath.Load(st.ExportDir)
		if err != nil {
			return err
		}
		info, err := p.resolver().Resolve(ctx, source)
		if err != nil {
			return err
		}
		p.logger.Info("version resolved", "branch", info.Branch, "version", info.Version, "core", info.CoreRequirement)

		framework, err := module.ParseRequirement(p.cfg.Framework)
		if err != nil {
			return fmt.Errorf("framework requirement: %w", err)
		}
		core, err := p.locate(ctx, info.CoreRequirement)
		if err != nil {
			return err
		}
		fw, err := p.locate(ctx, framework)
		if err != nil {
			return err
		}

		st.Branch = info.Branch
		st.Version = info.Version
		st.CoreRequirement = info.CoreRequirement.String()
		st.Core = core
		st.Framework = fw
		return build.SaveState(p.paths.BuildRoot, st)
	})
}

func (p *Pipeline) locate(ctx context.Context, req module.Requirement) (*build.Dependency, error) {
	pkg, err := p.locator.Locate(ctx, req)
	if err != nil {
		return nil, err
	}
	p.logger.Info("located", "requirement", req, "version", pkg.Version.Version, "root", pkg.Root)
	return &build.Dependency{
		Requirement: req.String(),
		Version:     pkg.Version.Version,
		Root:        pkg.Root,
	}, nil
}

// Generate discovers the framework root and writes the toolchain file into
// the build directory.
func (p *Pipeline) Generate(ctx context.Context) error {
	return p.phase(PhaseGenerate, func() error {
		st, err := p.loadState(func(st *build.State) bool { return st.Framework != nil && st.Core != nil }, PhaseRequirements)
		if err != nil {
			return err
		}
		root, err := toolchain.DiscoverRoot(st.Framework.Root)
		if err != nil {
			return err
		}
		plan := toolchain.NewPlan(p.cfg.Settings, root)
		file, err := plan.WriteFile(p.buildDir())
		if err != nil {
			return err
		}
		p.logger.Info("toolchain written", "file", file, "generator", plan.Generator, "framework_root", root)

		st.FrameworkRoot = root
		st.Generator = plan.Generator
		st.ToolchainFile = file
		return build.SaveState(p.paths.BuildRoot, st)
	})
}

// Build stages the core package and builds and installs both
// configurations.
func (p *Pipeline) Build(ctx context.Context) error {
	return p.phase(PhaseBuild, func() error {
		st, err := p.loadState(func(st *build.State) bool { return st.ToolchainFile != "" }, PhaseGenerate)
		if err != nil {
			return err
		}
		source, err := gitpath.Load(st.ExportDir)
		if err != nil {
			return err
		}

		dest := stage.ResolveDest(p.cfg.InstallDir, p.paths.BuildRoot)
		if err := os.Setenv(config.InstallDirEnv, dest); err != nil {
			return err
		}
		p.logger.Info("staging core", "from", st.Core.Root, "to", dest)
		if err := stage.Stage(st.Core.Root, dest); err != nil {
			return err
		}
		st.InstallDir = dest
		st.Built = nil
		if err := build.SaveState(p.paths.BuildRoot, st); err != nil {
			return err
		}

		opts := build.Options{
			SourceRoot:    source,
			BuildDir:      p.buildDir(),
			InstallDir:    dest,
			ToolchainFile: st.ToolchainFile,
			Env:           map[string]string{config.InstallDirEnv: dest},
			Logger:        p.logger,
			Stdout:        p.stdout,
			Stderr:        p.stderr,
		}
		if p.newBS != nil {
			opts.NewBuildSystem = func(src string, plan *toolchain.Plan) buildsys.BuildSystem {
				return p.newBS(src, p.buildDir(), plan)
			}
		}
		d := build.NewDriver(opts)
		d.OnBuilt(func(cfg build.Configuration) error {
			st.MarkBuilt(cfg, p.now())
			return build.SaveState(p.paths.BuildRoot, st)
		})
		return d.BuildAll(ctx, p.plan(st), p.cfg.SourceSubfolder)
	})
}

func (p *Pipeline) plan(st *build.State) *toolchain.Plan {
	return toolchain.NewPlan(p.cfg.Settings, st.FrameworkRoot)
}

// Package assembles the package into the output directory and writes its
// package info.
func (p *Pipeline) Package(ctx context.Context) error {
	return p.phase(PhasePackage, func() error {
		st, err := p.loadState((*build.State).BuiltAll, PhaseBuild)
		if err != nil {
			return err
		}
		source, err := gitpath.Load(st.ExportDir)
		if err != nil {
			return err
		}

		var bs buildsys.BuildSystem
		if p.newBS != nil {
			bs = p.newBS(source, p.buildDir(), p.plan(st))
		} else {
			c := cmake.New(source, p.buildDir())
			c.Verbose(true)
			c.Output(p.stdout, p.stderr)
			bs = c
		}
		asm := pack.NewAssembler(bs, p.cfg.Settings.Compiler, p.logger)
		art, err := asm.Assemble(ctx, p.paths.BuildRoot, p.packageRoot(), p.paths.OutputDir)
		if err != nil {
			return err
		}

		created := p.now()
		file, err := pkginfo.Write(art.Root, &pkginfo.Info{
			Package:  p.cfg.Identity,
			Version:  st.Version,
			Core:     st.CoreRequirement,
			RunID:    st.RunID,
			Created:  created,
			Settings: p.cfg.Settings,
			Extras:   art.Extras,
			Layout:   pkginfo.Describe(),
		})
		if err != nil {
			return fmt.Errorf("%w: %w", pack.ErrPackaging, err)
		}
		p.logger.Info("package info written", "file", file)

		st.Packaged = created
		st.OutputDir = art.Root
		return build.SaveState(p.paths.BuildRoot, st)
	})
}

// Info reads the package info of the output directory.
func (p *Pipeline) Info(ctx context.Context) (info *pkginfo.Info, err error) {
	err = p.phase(PhaseInfo, func() error {
		info, err = pkginfo.Read(p.paths.OutputDir)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: run %s first: %w", ErrOutOfOrder, PhasePackage, err)
		}
		return err
	})
	return
}

// Publish uploads the packaged output under the package name and version.
func (p *Pipeline) Publish(ctx context.Context) error {
	return p.phase(PhasePublish, func() error {
		if p.publisher == nil {
			return errors.New("no package store to publish to")
		}
		st, err := p.loadState(func(st *build.State) bool { return !st.Packaged.IsZero() }, PhasePackage)
		if err != nil {
			return err
		}
		v := module.Version{Path: p.cfg.Identity.Name, Version: st.Version}
		if v.Path == "" {
			return errors.New("package name is not set")
		}
		if err := p.publisher.Upload(ctx, v, st.OutputDir); err != nil {
			return err
		}
		p.logger.Info("published", "package", v)
		return nil
	})
}

// loadState loads the build state and checks that the phase before has
// completed.
func (p *Pipeline) loadState(done func(*build.State) bool, before string) (*build.State, error) {
	st, err := build.LoadState(p.paths.BuildRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfOrder, err)
	}
	if !done(st) {
		return nil, fmt.Errorf("%w: run %s first", ErrOutOfOrder, before)
	}
	return st, nil
}
