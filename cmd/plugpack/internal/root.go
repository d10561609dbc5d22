package internal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/goplus/plugpack/internal/config"
	"github.com/goplus/plugpack/internal/pipeline"
	"github.com/spf13/cobra"
)

// Version is set via -ldflags.
var Version = "dev"

var (
	verbose   bool
	recipeDir string
	exportDir string
	buildRoot string
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "plugpack",
	Short: "plugpack packages host framework plugins",
	Long: `plugpack builds a CMake plugin against the HDPS core in Debug and Release
and assembles both configurations into one package.

The package version and the core requirement come from the branch name,
e.g. release/v2.3.1 or release/v2.3.1/core-1.4.0.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&recipeDir, "recipe", "r", ".", "Plugin checkout holding plugpack.toml")
	pf.StringVar(&exportDir, "export", "", "Directory receiving the git path file (default <build>/export)")
	pf.StringVarP(&buildRoot, "build", "b", "build", "Build root")
	pf.StringVarP(&outputDir, "output", "o", "", "Package output directory (default <build>/output)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "plugpack",
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// paths applies the directory defaults to the flags.
func paths() pipeline.Paths {
	p := pipeline.Paths{
		RecipeDir: recipeDir,
		ExportDir: exportDir,
		BuildRoot: buildRoot,
		OutputDir: outputDir,
	}
	if p.ExportDir == "" {
		p.ExportDir = filepath.Join(buildRoot, "export")
	}
	if p.OutputDir == "" {
		p.OutputDir = filepath.Join(buildRoot, "output")
	}
	return p
}

// newPipeline loads the recipe and returns a pipeline over the flag paths.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	logger := newLogger()
	cfg, err := config.Load(recipeDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "package", cfg.Identity.Name, "os", cfg.Settings.OS, "compiler", cfg.Settings.Compiler)
	return pipeline.New(cfg, paths(),
		pipeline.WithLogger(logger),
		pipeline.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)
}

// phaseCommand returns a command running one pipeline phase.
func phaseCommand(use, short string, run func(*cobra.Command, *pipeline.Pipeline) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			return run(cmd, p)
		},
	}
}
