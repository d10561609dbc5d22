// Package branchinfo derives a package version and the core requirement
// from a git branch name.
//
// Recognized branches look like
//
//	release/v2.3.1
//	release/2.3.1
//	release/v2.3.1/core-1.4.0
//
// The optional trailing tag pins the core package; without it the core
// requirement is "<core>@latest".
package branchinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/plugpack/mod/module"
	"golang.org/x/mod/semver"
)

// ErrVersionResolution is returned when a branch name does not follow the
// naming convention.
var ErrVersionResolution = errors.New("version resolution failed")

const (
	// DefaultCorePackage is the host framework package plugins build against.
	DefaultCorePackage = "hdps-core"

	coreTagPrefix = "core-"
)

// Info is the version information carried by a branch.
type Info struct {
	Branch          string
	Version         string // semantic version without the leading "v"
	CoreRequirement module.Requirement
}

// Convention describes the branch naming rules of a project.
type Convention struct {
	// Kinds are the accepted leading segments, e.g. "release".
	Kinds []string
	// CorePackage is the package name used in the core requirement.
	CorePackage string
}

// DefaultConvention accepts "release/..." branches against hdps-core.
func DefaultConvention() Convention {
	return Convention{
		Kinds:       []string{"release"},
		CorePackage: DefaultCorePackage,
	}
}

// Parse parses branch with the default convention.
func Parse(branch string) (Info, error) {
	return DefaultConvention().Parse(branch)
}

// Parse parses branch into version information. It never returns a
// partial result: on failure the Info is zero and the error wraps
// ErrVersionResolution.
func (c Convention) Parse(branch string) (Info, error) {
	fail := func(format string, args ...any) (Info, error) {
		return Info{}, fmt.Errorf("%w: branch %q: %s", ErrVersionResolution, branch, fmt.Sprintf(format, args...))
	}

	parts := strings.Split(branch, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return fail("want <kind>/<version>[/%s<version>]", coreTagPrefix)
	}
	if !c.acceptsKind(parts[0]) {
		return fail("unrecognized branch kind %q", parts[0])
	}

	version, ok := canonical(parts[1])
	if !ok {
		return fail("%q is not a semantic version", parts[1])
	}

	corePkg := c.CorePackage
	if corePkg == "" {
		corePkg = DefaultCorePackage
	}
	req := module.Requirement{Name: corePkg, Constraint: module.Latest}
	if len(parts) == 3 {
		tag := parts[2]
		if !strings.HasPrefix(tag, coreTagPrefix) {
			return fail("malformed dependency tag %q", tag)
		}
		coreVer := strings.TrimPrefix(tag, coreTagPrefix)
		if coreVer != module.Latest {
			v, ok := canonical(coreVer)
			if !ok {
				return fail("malformed dependency tag %q", tag)
			}
			coreVer = v
		}
		req.Constraint = coreVer
	}

	return Info{
		Branch:          branch,
		Version:         version,
		CoreRequirement: req,
	}, nil
}

func (c Convention) acceptsKind(kind string) bool {
	kinds := c.Kinds
	if len(kinds) == 0 {
		kinds = DefaultConvention().Kinds
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// canonical validates a full MAJOR.MINOR.PATCH version with an optional
// "v" prefix and returns it without the prefix. Shorthands such as "v2.3"
// are rejected even though semver accepts them.
func canonical(s string) (string, bool) {
	v := s
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Build(v) != "" {
		return "", false
	}
	core := strings.TrimSuffix(v, semver.Prerelease(v))
	if strings.Count(core, ".") != 2 {
		return "", false
	}
	return strings.TrimPrefix(semver.Canonical(v), "v"), true
}
