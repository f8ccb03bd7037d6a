// Package manifest handles whilec.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a whilec.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the whilec.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures code generation defaults. Command line flags override
// these per invocation.
type Build struct {
	// Target is the platform to generate code for, e.g. "linux-x86_64".
	Target string `toml:"target"`
	// Output is the directory assembly files are written to.
	Output string `toml:"output"`
	// EmitRuntime also drops runtime.c next to the generated assembly.
	EmitRuntime bool `toml:"emit-runtime"`
}

// Load parses a whilec.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "whilec.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Build.Target == "" {
		m.Build.Target = "linux-x86_64"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a whilec.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "whilec.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// OutputDir returns the absolute output directory, defaulting to the
// manifest directory itself.
func (m *Manifest) OutputDir() string {
	if m.Build.Output == "" {
		return m.Dir
	}
	if filepath.IsAbs(m.Build.Output) {
		return m.Build.Output
	}
	return filepath.Join(m.Dir, m.Build.Output)
}
