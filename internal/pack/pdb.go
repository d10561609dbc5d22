package pack

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/internal/config"
)

// Compilers that emit program database files next to their binaries.
var pdbCompilers = []string{config.CompilerVisualStudio, config.CompilerMSVC}

// CollectPDB copies every *.pdb file below buildRoot into
// <artifact>/Debug/Plugins, dropping the directories they were found in.
// The artifact itself is not searched.
func CollectPDB(_ context.Context, buildRoot string, a *Artifact) error {
	dst := filepath.Join(a.Root, string(build.Debug), "Plugins")
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	root, err := filepath.Abs(a.Root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(buildRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, err := filepath.Abs(path); err == nil && abs == root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdb") {
			return nil
		}
		target := filepath.Join(dst, d.Name())
		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("copy %s: %w", path, err)
		}
		rel, err := filepath.Rel(a.Root, target)
		if err != nil {
			return err
		}
		a.Extras = append(a.Extras, rel)
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
