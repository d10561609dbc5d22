// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goplus/plugpack/pkgs/buildsys"
	"golang.org/x/sys/execabs"
)

type defineValue struct {
	value    string
	typeName string
}

// Runner executes one cmake invocation.
type Runner func(ctx context.Context, name string, args, env []string, stdout, stderr io.Writer) error

// CMake drives CMake-based builds.
type CMake struct {
	sourceDir string
	buildDir  string
	generator string
	toolchain string
	verbose   bool
	defines   map[string]defineValue
	env       map[string]string
	stdout    io.Writer
	stderr    io.Writer
	run       Runner
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
		env:       make(map[string]string),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		run:       execRun,
	}
}

// Source overrides the source directory.
func (c *CMake) Source(dir string) { c.sourceDir = dir }

// BuildDir returns the build tree.
func (c *CMake) BuildDir() string { return c.buildDir }

// Generator sets the CMake generator (e.g. "Ninja Multi-Config", "Xcode").
func (c *CMake) Generator(name string) { c.generator = name }

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) { c.toolchain = path }

// Verbose enables verbose build output.
func (c *CMake) Verbose(on bool) { c.verbose = on }

// Output redirects the output of cmake.
func (c *CMake) Output(stdout, stderr io.Writer) {
	c.stdout, c.stderr = stdout, stderr
}

// SetRunner replaces the process runner.
func (c *CMake) SetRunner(r Runner) { c.run = r }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Env sets an environment variable for every cmake invocation.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.exec(ctx, cmakeArgs)
}

// Build runs "cmake --build <build> --config <config>".
func (c *CMake) Build(ctx context.Context, config string) error {
	cmakeArgs := []string{"--build", c.buildDir, "--config", config}
	if c.verbose {
		cmakeArgs = append(cmakeArgs, "--verbose")
	}
	return c.exec(ctx, cmakeArgs)
}

// Install runs "cmake --install <build> --config <config>", into prefix
// when it is set.
func (c *CMake) Install(ctx context.Context, config, prefix string) error {
	cmakeArgs := []string{"--install", c.buildDir, "--config", config}
	if prefix != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", prefix)
	}
	if c.verbose {
		cmakeArgs = append(cmakeArgs, "--verbose")
	}
	return c.exec(ctx, cmakeArgs)
}

func (c *CMake) exec(ctx context.Context, args []string) error {
	tail := &tailBuffer{max: 4096}
	err := c.run(ctx, "cmake", args, mergeEnv(os.Environ(), c.env), c.stdout, io.MultiWriter(c.stderr, tail))
	if err == nil {
		return nil
	}
	if msg := strings.TrimSpace(tail.String()); msg != "" {
		return fmt.Errorf("cmake %s: %w\n%s", strings.Join(args, " "), err, msg)
	}
	return fmt.Errorf("cmake %s: %w", strings.Join(args, " "), err)
}

func execRun(ctx context.Context, name string, args, env []string, stdout, stderr io.Writer) error {
	cmd := execabs.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}

func mergeEnv(base []string, override map[string]string) []string {
	if len(override) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
