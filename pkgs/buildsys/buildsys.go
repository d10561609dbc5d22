package buildsys

import "context"

// BuildSystem captures the lifecycle the build driver and the package
// assembler need from a native build system.
type BuildSystem interface {
	// Configure generates the build tree. Extra args are passed through.
	Configure(ctx context.Context, args ...string) error

	// Build compiles one configuration.
	Build(ctx context.Context, config string) error

	// Install installs one configuration, into prefix when it is set.
	Install(ctx context.Context, config, prefix string) error
}
