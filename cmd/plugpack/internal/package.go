package internal

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/plugpack/internal/pipeline"
	"github.com/spf13/cobra"
)

var packageArchive string

var packageCmd = phaseCommand("package", "Assemble Debug and Release into the output directory",
	func(cmd *cobra.Command, p *pipeline.Pipeline) error {
		if err := p.Package(cmd.Context()); err != nil {
			return err
		}
		if packageArchive == "" {
			return nil
		}
		if err := zipDir(p.Paths().OutputDir, packageArchive); err != nil {
			return fmt.Errorf("failed to write archive: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), packageArchive)
		return nil
	})

func init() {
	packageCmd.Flags().StringVarP(&packageArchive, "archive", "a", "", "Also write the package as a .zip file")
	rootCmd.AddCommand(packageCmd)
}

// zipDir creates a zip archive at dest from the contents of srcDir.
// Entry names use forward slashes.
func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
