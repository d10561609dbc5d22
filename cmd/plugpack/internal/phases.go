package internal

import (
	"fmt"

	"github.com/goplus/plugpack/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	exportCmd = phaseCommand("export", "Record the plugin checkout for later phases",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			runID, err := p.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), runID)
			return nil
		})

	versionCmd = phaseCommand("version", "Print the version derived from the current branch",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			info, err := p.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Version, info.CoreRequirement)
			return nil
		})

	requirementsCmd = phaseCommand("requirements", "Locate the core and framework packages",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			return p.Requirements(cmd.Context())
		})

	generateCmd = phaseCommand("generate", "Write the CMake toolchain file",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			return p.Generate(cmd.Context())
		})

	buildCmd = phaseCommand("build", "Stage the core and build Debug and Release",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			return p.Build(cmd.Context())
		})

	publishCmd = phaseCommand("publish", "Upload the package to the package store",
		func(cmd *cobra.Command, p *pipeline.Pipeline) error {
			return p.Publish(cmd.Context())
		})
)

func init() {
	rootCmd.AddCommand(exportCmd, versionCmd, requirementsCmd, generateCmd, buildCmd, publishCmd)
}
