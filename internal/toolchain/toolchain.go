// Package toolchain turns build settings and a located UI framework into
// the CMake generator and cache variables of one build.
package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/plugpack/internal/config"
)

// FileName is the toolchain file written by Plan.WriteFile.
const FileName = "plugpack_toolchain.cmake"

const (
	GeneratorXcode      = "Xcode"
	GeneratorNinjaMulti = "Ninja Multi-Config"
)

// Value is a CMake cache variable value: a string or a bool.
type Value struct {
	Str    string
	Bool   bool
	IsBool bool
}

// String returns a STRING value.
func String(s string) Value { return Value{Str: s} }

// Bool returns a BOOL value.
func Bool(b bool) Value { return Value{Bool: b, IsBool: true} }

// CMake renders the value as CMake source.
func (v Value) CMake() string {
	if v.IsBool {
		if v.Bool {
			return "ON"
		}
		return "OFF"
	}
	return v.Str
}

// Plan is the resolved toolchain of one build.
type Plan struct {
	OS         config.OS
	Generator  string // empty selects the platform default
	Variables  map[string]Value
	PrefixPath string
}

// Generator returns the CMake generator used for target.
func Generator(target config.OS) string {
	switch target {
	case config.Macos:
		return GeneratorXcode
	case config.Linux:
		return GeneratorNinjaMulti
	}
	return ""
}

// NewPlan builds the toolchain plan for s against the framework installed at
// frameworkRoot.
func NewPlan(s config.Settings, frameworkRoot string) *Plan {
	s = s.Normalize()
	p := &Plan{
		OS:         s.OS,
		Generator:  Generator(s.OS),
		Variables:  map[string]Value{},
		PrefixPath: filepath.ToSlash(frameworkRoot),
	}
	if s.OS == config.Windows && s.Shared {
		p.Variables["CMAKE_WINDOWS_EXPORT_ALL_SYMBOLS"] = Bool(true)
	}
	if s.OS == config.Linux || s.OS == config.Macos {
		p.Variables["CMAKE_CXX_STANDARD_REQUIRED"] = Bool(true)
		p.Variables["CMAKE_POSITION_INDEPENDENT_CODE"] = Bool(s.FPIC)
	}
	p.Variables["BUILD_SHARED_LIBS"] = Bool(s.Shared)
	p.Variables["CMAKE_PREFIX_PATH"] = String(p.PrefixPath)
	p.Variables["USE_ARTIFACTORY_LIBS"] = Bool(true)
	return p
}

// MultiConfig reports whether one configure of the generator can build
// both Debug and Release.
func (p *Plan) MultiConfig() bool {
	switch {
	case p.Generator == GeneratorXcode, p.Generator == GeneratorNinjaMulti:
		return true
	case strings.HasPrefix(p.Generator, "Visual Studio"):
		return true
	case p.Generator == "":
		// Visual Studio is the default on Windows, Unix Makefiles elsewhere.
		return p.OS == config.Windows
	}
	return false
}

// Names returns the variable names in sorted order.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.Variables))
	for k := range p.Variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Render returns the toolchain file contents.
func (p *Plan) Render() string {
	var b strings.Builder
	b.WriteString("# Generated by plugpack. Do not edit.\n")
	for _, k := range p.Names() {
		v := p.Variables[k]
		typ := "STRING"
		if v.IsBool {
			typ = "BOOL"
		}
		fmt.Fprintf(&b, "set(%s %q CACHE %s \"\" FORCE)\n", k, v.CMake(), typ)
	}
	return b.String()
}

// WriteFile writes the toolchain file into dir and returns its path.
func (p *Plan) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(dir, FileName)
	if err := os.WriteFile(file, []byte(p.Render()), 0o644); err != nil {
		return "", err
	}
	return file, nil
}
