package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Build root layout:
//
//	buildRoot/
//	  .plugpack.json       # phase state: maps each finished phase to its outcome
//	  build/               # generated CMake project
//	  install/             # staged core tree, default HDPS_INSTALL_DIR
//	  package/             # per-configuration package installs
const stateFile = ".plugpack.json"

// ErrNoState is returned by LoadState before the first phase has run in a
// build root.
var ErrNoState = errors.New("no build state")

// Dependency is a located requirement.
type Dependency struct {
	Requirement string `json:"requirement"`
	Version     string `json:"version"`
	Root        string `json:"root"`
}

// State records what earlier phases produced so that later phases, possibly
// run by a separate invocation, can pick up from there.
type State struct {
	RunID     string `json:"run_id"`
	ExportDir string `json:"export_dir"`
	WorkTree  string `json:"work_tree,omitempty"`

	Branch          string `json:"branch,omitempty"`
	Version         string `json:"version,omitempty"`
	CoreRequirement string `json:"core_requirement,omitempty"`

	Core      *Dependency `json:"core,omitempty"`
	Framework *Dependency `json:"framework,omitempty"`

	FrameworkRoot string `json:"framework_root,omitempty"`
	Generator     string `json:"generator,omitempty"`
	ToolchainFile string `json:"toolchain_file,omitempty"`

	InstallDir string                      `json:"install_dir,omitempty"`
	Built      map[Configuration]time.Time `json:"built,omitempty"`
	Packaged   time.Time                   `json:"packaged,omitzero"`
	OutputDir  string                      `json:"output_dir,omitempty"`
}

// MarkBuilt records that cfg finished building and installing.
func (s *State) MarkBuilt(cfg Configuration, at time.Time) {
	if s.Built == nil {
		s.Built = make(map[Configuration]time.Time)
	}
	s.Built[cfg] = at
}

// BuiltAll reports whether every configuration has been built.
func (s *State) BuiltAll() bool {
	for _, cfg := range Configurations {
		if _, ok := s.Built[cfg]; !ok {
			return false
		}
	}
	return true
}

// StatePath returns the state file of buildRoot.
func StatePath(buildRoot string) string {
	return filepath.Join(buildRoot, stateFile)
}

// LoadState reads the state file from buildRoot.
func LoadState(buildRoot string) (*State, error) {
	data, err := os.ReadFile(StatePath(buildRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoState, buildRoot)
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", StatePath(buildRoot), err)
	}
	return &s, nil
}

// SaveState writes s to buildRoot.
func SaveState(buildRoot string, s *State) error {
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(StatePath(buildRoot), data, 0o644)
}
