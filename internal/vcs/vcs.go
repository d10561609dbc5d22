// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/execabs"
)

// Git reads metadata from local git repositories.
type Git struct {
	git string
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// NewGit creates a new git reader.
func NewGit(opts ...GitOption) *Git {
	g := &Git{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CurrentBranch returns the short name of the branch checked out in dir.
// It fails on a detached HEAD.
func (g *Git) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.output(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", fmt.Errorf("current branch: empty branch name in %s", dir)
	}
	return branch, nil
}

// Toplevel returns the root of the work tree containing dir.
func (g *Git) Toplevel(ctx context.Context, dir string) (string, error) {
	out, err := g.output(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("toplevel: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := execabs.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
