// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/plugpack/mod/module"
)

// Store is a local package store laid out as
//
//	dir/
//	  <escaped name>/
//	    <version>/       # installed package tree
type Store struct {
	dir string
}

var _ Locator = (*Store)(nil)

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Locate returns the installed package best matching req.
func (s *Store) Locate(ctx context.Context, req module.Requirement) (Package, error) {
	pkgDir, err := s.packageDirOf(req.Name)
	if err != nil {
		return Package{}, err
	}
	entries, err := os.ReadDir(pkgDir)
	if errors.Is(err, fs.ErrNotExist) {
		return Package{}, fmt.Errorf("%w: %s in %s", ErrNotFound, req, s.dir)
	}
	if err != nil {
		return Package{}, err
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	ver, err := Select(versions, req.Constraint)
	if err != nil {
		return Package{}, fmt.Errorf("%s: %w", req, err)
	}
	return Package{
		Version: module.Version{Path: req.Name, Version: ver},
		Root:    filepath.Join(pkgDir, ver),
	}, nil
}

// Upload copies the tree at dir into the store as package v. An existing
// copy of v is never overwritten.
func (s *Store) Upload(ctx context.Context, v module.Version, dir string) error {
	pkgDir, err := s.packageDirOf(v.Path)
	if err != nil {
		return err
	}
	dest := filepath.Join(pkgDir, v.Version)
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%s already exists in %s", v, s.dir)
	}
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return err
	}
	partial := dest + ".partial"
	if err := os.RemoveAll(partial); err != nil {
		return err
	}
	if err := os.CopyFS(partial, os.DirFS(dir)); err != nil {
		return fmt.Errorf("copy %s: %w", v, err)
	}
	return os.Rename(partial, dest)
}

// packageDirOf returns the directory holding all versions of a package.
func (s *Store) packageDirOf(name string) (string, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, escaped), nil
}
