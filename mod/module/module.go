// Package module defines the module.Version and module.Requirement types
// along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Version represents a specific version of a package identified by its path.
type Version struct {
	Path    string // Package name, e.g. "hdps-core"
	Version string // Version string (e.g., "1.0.0")
}

// String returns "path@version".
func (v Version) String() string {
	return v.Path + "@" + v.Version
}

// Latest is the constraint that selects the highest available version.
const Latest = "latest"

// A Requirement names a package and the versions of it that are acceptable.
type Requirement struct {
	Name       string // Package name
	Constraint string // "latest", an exact version or "~MAJOR.MINOR"
}

// String returns "name@constraint".
func (r Requirement) String() string {
	return r.Name + "@" + r.Constraint
}

// ParseRequirement parses a requirement in the form "name@constraint".
// The separator is the last '@'.
func ParseRequirement(s string) (Requirement, error) {
	i := strings.LastIndexByte(s, '@')
	if i <= 0 || i == len(s)-1 {
		return Requirement{}, fmt.Errorf("invalid requirement %q: want name@constraint", s)
	}
	return Requirement{Name: s[:i], Constraint: s[i+1:]}, nil
}

// EscapePath returns the escaped form of the given package path as a valid
// file system path. It fails if the path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
