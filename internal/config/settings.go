package config

import (
	"fmt"
	"runtime"
	"strings"
)

// OS is a target operating system as named by the build settings.
type OS string

const (
	Windows OS = "Windows"
	Linux   OS = "Linux"
	Macos   OS = "Macos"
)

// ParseOS accepts the settings spelling and the Go spelling of an OS.
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	case "macos", "darwin":
		return Macos, nil
	}
	return "", fmt.Errorf("unsupported os %q", s)
}

// Compiler identities with special handling.
const (
	CompilerVisualStudio = "Visual Studio"
	CompilerMSVC         = "msvc"
	CompilerGCC          = "gcc"
	CompilerAppleClang   = "apple-clang"
)

// Settings are the read-only build inputs supplied by the invoking environment.
type Settings struct {
	OS        OS     `mapstructure:"os" toml:"os"`
	Compiler  string `mapstructure:"compiler" toml:"compiler"`
	Arch      string `mapstructure:"arch" toml:"arch"`
	BuildType string `mapstructure:"build_type" toml:"build_type"`
	Shared    bool   `mapstructure:"shared" toml:"shared"`
	FPIC      bool   `mapstructure:"fpic" toml:"fpic"`
}

// HostSettings returns the defaults for the machine running the build.
func HostSettings() Settings {
	s := Settings{
		Arch:      hostArch(runtime.GOARCH),
		BuildType: "Release",
		Shared:    true,
		FPIC:      true,
	}
	s.OS, _ = ParseOS(runtime.GOOS)
	switch s.OS {
	case Windows:
		s.Compiler = CompilerVisualStudio
	case Macos:
		s.Compiler = CompilerAppleClang
	default:
		s.Compiler = CompilerGCC
	}
	return s.Normalize()
}

// Normalize drops options that do not apply to the target: fPIC has no
// meaning on Windows.
func (s Settings) Normalize() Settings {
	if s.OS == Windows {
		s.FPIC = false
	}
	return s
}

// Validate reports settings that cannot drive a build.
func (s Settings) Validate() error {
	if _, err := ParseOS(string(s.OS)); err != nil {
		return err
	}
	if s.Compiler == "" {
		return fmt.Errorf("compiler is required")
	}
	if s.Arch == "" {
		return fmt.Errorf("arch is required")
	}
	return nil
}

func hostArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	}
	return goarch
}
