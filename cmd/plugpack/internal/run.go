package internal

import (
	"github.com/goplus/plugpack/internal/pipeline"
	"github.com/spf13/cobra"
)

var runPublish bool

var runCmd = phaseCommand("run", "Run every phase from export to package",
	func(cmd *cobra.Command, p *pipeline.Pipeline) error {
		return p.Run(cmd.Context(), pipeline.RunOptions{Publish: runPublish})
	})

func init() {
	runCmd.Flags().BoolVar(&runPublish, "publish", false, "Publish the package after packaging")
	rootCmd.AddCommand(runCmd)
}
