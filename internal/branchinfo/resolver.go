package branchinfo

import (
	"context"
	"fmt"
)

// BranchReader reports the branch checked out in a repository.
type BranchReader interface {
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
}

// Resolver resolves Info for a repository path.
type Resolver struct {
	reader     BranchReader
	convention Convention
}

// NewResolver returns a Resolver reading branches with r and parsing them
// with c.
func NewResolver(r BranchReader, c Convention) *Resolver {
	return &Resolver{reader: r, convention: c}
}

// Resolve reads the current branch of the repository at repoPath and parses it.
func (r *Resolver) Resolve(ctx context.Context, repoPath string) (Info, error) {
	branch, err := r.reader.CurrentBranch(ctx, repoPath)
	if err != nil {
		return Info{}, fmt.Errorf("%w: read branch of %s: %v", ErrVersionResolution, repoPath, err)
	}
	return r.convention.Parse(branch)
}
