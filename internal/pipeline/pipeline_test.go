package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goplus/plugpack/internal/branchinfo"
	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/internal/config"
	"github.com/goplus/plugpack/internal/gitpath"
	"github.com/goplus/plugpack/internal/locate"
	"github.com/goplus/plugpack/internal/pkginfo"
	"github.com/goplus/plugpack/internal/stage"
	"github.com/goplus/plugpack/internal/toolchain"
	"github.com/goplus/plugpack/pkgs/buildsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBranch string

func (b fixedBranch) CurrentBranch(context.Context, string) (string, error) {
	return string(b), nil
}

// gitTree also reports a work-tree root, as vcs.Git does.
type gitTree struct {
	fixedBranch
	top string
	err error
}

func (g gitTree) Toplevel(context.Context, string) (string, error) {
	return g.top, g.err
}

// recorder is a build system shared by every pipeline phase.
type recorder struct {
	calls  []string
	failOn string
}

func (r *recorder) step(s string) error {
	r.calls = append(r.calls, s)
	if s == r.failOn {
		return errors.New("exit status 2")
	}
	return nil
}

func (r *recorder) Configure(_ context.Context, args ...string) error {
	return r.step(strings.TrimSpace("configure " + strings.Join(args, " ")))
}

func (r *recorder) Build(_ context.Context, cfg string) error {
	return r.step("build " + cfg)
}

func (r *recorder) Install(_ context.Context, cfg, prefix string) error {
	if err := r.step("install " + cfg); err != nil {
		return err
	}
	dir := filepath.Join(prefix, "Plugins")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "SpaceWalker."+cfg+".so"), []byte(cfg), 0o644)
}

type fixture struct {
	paths Paths
	store *locate.Store
	rec   *recorder
	cfg   *config.Config
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv(config.InstallDirEnv, "")

	root := t.TempDir()
	storeDir := filepath.Join(root, "store")
	writeFile(t, filepath.Join(storeDir, "hdps-core", "1.4.0", "lib", "libHDPS_Public.so"))
	writeFile(t, filepath.Join(storeDir, "hdps-core", "1.3.0", "lib", "libHDPS_Public.so"))
	writeFile(t, filepath.Join(storeDir, "qt", "6.3.2", "lib", "cmake", "Qt6", "Qt6Config.cmake"))

	recipe := filepath.Join(root, "SpaceWalkerPlugin")
	writeFile(t, filepath.Join(recipe, "CMakeLists.txt"))

	return &fixture{
		paths: Paths{
			RecipeDir: recipe,
			ExportDir: filepath.Join(root, "export"),
			BuildRoot: filepath.Join(root, "build"),
			OutputDir: filepath.Join(root, "out"),
		},
		store: locate.NewStore(storeDir),
		rec:   &recorder{},
		cfg: &config.Config{
			Identity: config.Identity{Name: "SpaceWalkerPlugin", License: "LGPL-3.0"},
			Settings: config.Settings{
				OS:        config.Linux,
				Compiler:  config.CompilerGCC,
				Arch:      "x86_64",
				BuildType: "Release",
				Shared:    true,
				FPIC:      true,
			},
			Branch:          config.Branch{Kinds: []string{"release"}, CorePackage: "hdps-core"},
			Framework:       "qt@latest",
			SourceSubfolder: ".",
		},
	}
}

func (f *fixture) pipeline(t *testing.T, branch string) *Pipeline {
	t.Helper()
	return f.pipelineWith(t, fixedBranch(branch))
}

func (f *fixture) pipelineWith(t *testing.T, reader branchinfo.BranchReader) *Pipeline {
	t.Helper()
	p, err := New(f.cfg, f.paths,
		WithLogger(log.New(io.Discard)),
		WithBranchReader(reader),
		WithLocator(f.store),
		WithPublisher(f.store),
		WithOutput(io.Discard, io.Discard),
		WithBuildSystem(func(string, string, *toolchain.Plan) buildsys.BuildSystem { return f.rec }),
	)
	require.NoError(t, err)
	return p
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1/core-1.3.0")
	ctx := context.Background()

	require.NoError(t, p.Run(ctx, RunOptions{Publish: true}))

	assert.Equal(t, []string{
		"configure",
		"build Debug", "install Debug",
		"build Release", "install Release",
		"install Debug", "install Release",
	}, f.rec.calls)

	source, err := gitpath.Load(f.paths.ExportDir)
	require.NoError(t, err)
	assert.Equal(t, f.paths.RecipeDir, source)

	st, err := build.LoadState(f.paths.BuildRoot)
	require.NoError(t, err)
	assert.NotEmpty(t, st.RunID)
	assert.Equal(t, "2.3.1", st.Version)
	assert.Equal(t, "hdps-core@1.3.0", st.CoreRequirement)
	assert.Equal(t, "1.3.0", st.Core.Version)
	assert.Equal(t, "6.3.2", st.Framework.Version)
	assert.Equal(t, filepath.Join(f.store.Dir(), "qt", "6.3.2"), st.FrameworkRoot)
	assert.Equal(t, toolchain.GeneratorNinjaMulti, st.Generator)
	assert.FileExists(t, st.ToolchainFile)
	assert.True(t, st.BuiltAll())
	assert.False(t, st.Packaged.IsZero())

	install := filepath.Join(f.paths.BuildRoot, stage.DefaultDirName)
	assert.Equal(t, install, os.Getenv(config.InstallDirEnv))
	assert.FileExists(t, filepath.Join(install, "lib", "libHDPS_Public.so"))

	for _, cfg := range []string{"Debug", "Release"} {
		for _, d := range []string{"lib", "Plugins", "include"} {
			assert.DirExists(t, filepath.Join(f.paths.OutputDir, cfg, d))
		}
	}

	info, err := p.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SpaceWalkerPlugin", info.Package.Name)
	assert.Equal(t, "2.3.1", info.Version)
	assert.Equal(t, st.RunID, info.RunID)
	assert.Equal(t, pkginfo.Describe(), info.Layout)

	published := filepath.Join(f.store.Dir(), "SpaceWalkerPlugin", "2.3.1")
	assert.FileExists(t, filepath.Join(published, "Release", "Plugins", "SpaceWalker.Release.so"))
	assert.FileExists(t, filepath.Join(published, pkginfo.FileName))
}

func TestExportRecordsWorkTree(t *testing.T) {
	f := newFixture(t)
	top := filepath.Dir(f.paths.RecipeDir)
	p := f.pipelineWith(t, gitTree{fixedBranch: "release/v2.3.1", top: top})

	_, err := p.Export(context.Background())
	require.NoError(t, err)
	st, err := build.LoadState(f.paths.BuildRoot)
	require.NoError(t, err)
	assert.Equal(t, top, st.WorkTree)
}

func TestExportOutsideWorkTree(t *testing.T) {
	f := newFixture(t)
	p := f.pipelineWith(t, gitTree{fixedBranch: "release/v2.3.1", err: errors.New("not a git repository")})

	_, err := p.Export(context.Background())
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseExport, pe.Phase)
	assert.Contains(t, err.Error(), "not a git repository")
	assert.NoFileExists(t, filepath.Join(f.paths.ExportDir, gitpath.FileName))
	_, err = build.LoadState(f.paths.BuildRoot)
	assert.ErrorIs(t, err, build.ErrNoState)
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	info, err := f.pipeline(t, "release/2.3.1").Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.3.1", info.Version)
	assert.Equal(t, "hdps-core@latest", info.CoreRequirement.String())

	_, err = f.pipeline(t, "feature/foo").Version(context.Background())
	assert.ErrorIs(t, err, branchinfo.ErrVersionResolution)
}

func TestRequirementsResolveThroughPathFile(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1")
	ctx := context.Background()

	err := p.Requirements(ctx)
	require.ErrorIs(t, err, ErrOutOfOrder)

	_, err = p.Export(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.paths.ExportDir, gitpath.FileName)))

	err = p.Requirements(ctx)
	assert.ErrorIs(t, err, gitpath.ErrMissing)
}

func TestRequirementsBadBranch(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "feature/foo")
	ctx := context.Background()

	_, err := p.Export(ctx)
	require.NoError(t, err)

	err = p.Requirements(ctx)
	require.ErrorIs(t, err, branchinfo.ErrVersionResolution)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseRequirements, pe.Phase)

	st, err := build.LoadState(f.paths.BuildRoot)
	require.NoError(t, err)
	assert.Empty(t, st.Version)
}

func TestRequirementsNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1/core-9.0.0")
	ctx := context.Background()

	_, err := p.Export(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Requirements(ctx), locate.ErrNotFound)
}

func TestPhaseOrder(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1")
	ctx := context.Background()

	_, err := p.Export(ctx)
	require.NoError(t, err)

	for name, phase := range map[string]func(context.Context) error{
		PhaseGenerate: p.Generate,
		PhaseBuild:    p.Build,
		PhasePackage:  p.Package,
		PhasePublish:  p.Publish,
	} {
		err := phase(ctx)
		require.ErrorIs(t, err, ErrOutOfOrder, name)
		var pe *PhaseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, name, pe.Phase)
	}
	assert.Empty(t, f.rec.calls)

	_, err = p.Info(ctx)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestBuildFailureStopsBeforeRelease(t *testing.T) {
	f := newFixture(t)
	f.rec.failOn = "build Debug"
	p := f.pipeline(t, "release/v2.3.1")
	ctx := context.Background()

	err := p.Run(ctx, RunOptions{})
	require.ErrorIs(t, err, build.ErrBuildFailure)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseBuild, pe.Phase)
	assert.Contains(t, err.Error(), "exit status 2")

	assert.Equal(t, []string{"configure", "build Debug"}, f.rec.calls)
	assert.NoDirExists(t, f.paths.OutputDir)

	st, err := build.LoadState(f.paths.BuildRoot)
	require.NoError(t, err)
	assert.Empty(t, st.Built)
	assert.ErrorIs(t, p.Package(ctx), ErrOutOfOrder)
}

func TestBuildRefusesStaleStaging(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1")
	ctx := context.Background()

	_, err := p.Export(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Requirements(ctx))
	require.NoError(t, p.Generate(ctx))
	require.NoError(t, p.Build(ctx))

	err = p.Build(ctx)
	assert.ErrorIs(t, err, stage.ErrStaging)
}

func TestBuildInstallDirOverride(t *testing.T) {
	f := newFixture(t)
	f.cfg.InstallDir = filepath.Join(t.TempDir(), "hdps")
	p := f.pipeline(t, "release/v2.3.1")

	require.NoError(t, p.Run(context.Background(), RunOptions{}))
	assert.Equal(t, f.cfg.InstallDir, os.Getenv(config.InstallDirEnv))
	assert.FileExists(t, filepath.Join(f.cfg.InstallDir, "lib", "libHDPS_Public.so"))
	assert.NoDirExists(t, filepath.Join(f.paths.BuildRoot, stage.DefaultDirName))
}

func TestPublishWithoutStore(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, "release/v2.3.1")
	p.publisher = nil
	err := p.Publish(context.Background())
	assert.Error(t, err)
	assert.Equal(t, fmt.Sprintf("%s: no package store to publish to", PhasePublish), err.Error())
}

func TestNewRequiresPaths(t *testing.T) {
	f := newFixture(t)
	paths := f.paths
	paths.OutputDir = ""
	_, err := New(f.cfg, paths, WithLocator(f.store))
	assert.Error(t, err)
}
