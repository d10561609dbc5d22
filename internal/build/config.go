package build

// Configuration is a build variant.
type Configuration string

const (
	Debug   Configuration = "Debug"
	Release Configuration = "Release"
)

// Configurations lists every configuration in build order. Debug always
// completes before Release starts.
var Configurations = []Configuration{Debug, Release}
