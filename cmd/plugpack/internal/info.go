package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/goplus/plugpack/internal/build"
	"github.com/goplus/plugpack/internal/pipeline"
	"github.com/goplus/plugpack/internal/pkginfo"
	"github.com/spf13/cobra"
)

var infoCmd = phaseCommand("info", "Print the published package layout",
	func(cmd *cobra.Command, p *pipeline.Pipeline) error {
		info, err := p.Info(cmd.Context())
		if err != nil {
			return err
		}
		printInfo(cmd.OutOrStdout(), info)
		return nil
	})

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, info *pkginfo.Info) {
	fmt.Fprintf(w, "%s %s (core %s, run %s)\n", info.Package.Name, info.Version, info.Core, info.RunID)
	fmt.Fprintf(w, "%s/%s %s\n", info.Settings.OS, info.Settings.Arch, info.Settings.Compiler)
	for _, cfg := range build.Configurations {
		dirs, ok := info.Layout[cfg]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s:\n", cfg)
		fmt.Fprintf(w, "  lib:     %s\n", strings.Join(dirs.LibDirs, " "))
		fmt.Fprintf(w, "  bin:     %s\n", strings.Join(dirs.BinDirs, " "))
		fmt.Fprintf(w, "  include: %s\n", strings.Join(dirs.IncludeDirs, " "))
	}
	for _, extra := range info.Extras {
		fmt.Fprintf(w, "extra: %s\n", extra)
	}
}
