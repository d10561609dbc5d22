// Package locate finds installed packages satisfying a requirement.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/plugpack/mod/module"
	"golang.org/x/mod/semver"
)

// ErrNotFound is returned when no available version satisfies a requirement.
var ErrNotFound = errors.New("package not found")

// Package is a located, installed package.
type Package struct {
	module.Version
	Root string // directory holding the installed tree
}

// Locator resolves a requirement to an installed package.
type Locator interface {
	Locate(ctx context.Context, req module.Requirement) (Package, error)
}

// Select returns the version in available that best satisfies constraint:
// "latest" picks the highest version, "~MAJOR.MINOR" the highest patch of
// that minor line, anything else must match a version exactly. Entries that
// are not semantic versions are ignored.
func Select(available []string, constraint string) (string, error) {
	match, err := matcher(constraint)
	if err != nil {
		return "", err
	}
	best := ""
	for _, v := range available {
		sv := "v" + strings.TrimPrefix(v, "v")
		if !semver.IsValid(sv) || !match(sv) {
			continue
		}
		if best == "" || semver.Compare(sv, "v"+strings.TrimPrefix(best, "v")) > 0 {
			best = v
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no version matches %q", ErrNotFound, constraint)
	}
	return best, nil
}

func matcher(constraint string) (func(string) bool, error) {
	switch {
	case constraint == module.Latest:
		return func(string) bool { return true }, nil
	case strings.HasPrefix(constraint, "~"):
		line := "v" + strings.TrimPrefix(strings.TrimPrefix(constraint, "~"), "v")
		if !semver.IsValid(line) || strings.Count(line, ".") != 1 {
			return nil, fmt.Errorf("invalid constraint %q: want ~MAJOR.MINOR", constraint)
		}
		mm := semver.MajorMinor(line)
		return func(v string) bool { return semver.MajorMinor(v) == mm }, nil
	}
	want := "v" + strings.TrimPrefix(constraint, "v")
	if !semver.IsValid(want) {
		return nil, fmt.Errorf("invalid constraint %q", constraint)
	}
	return func(v string) bool { return semver.Compare(v, want) == 0 }, nil
}
