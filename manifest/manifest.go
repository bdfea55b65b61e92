// Package manifest handles fusion.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a fusion.toml project configuration.
type Manifest struct {
	Project   Project            `toml:"project"`
	Source    Source             `toml:"source"`
	Libraries map[string]Library `toml:"libraries"`
	Output    Output             `toml:"output"`

	// Dir is the directory containing the fusion.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Library names one native type library the project compiles against:
// a CBOR database file, optionally with a SQLite cache next to it.
type Library struct {
	Path  string `toml:"path"`
	Cache string `toml:"cache"`
}

// Output configures bytecode output.
type Output struct {
	File string `toml:"file"`
}

// Load parses a fusion.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "fusion.toml")
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
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Output.File == "" {
		m.Output.File = m.Project.Name + ".fabc"
	}

	for name := range m.Libraries {
		if !IsValidLibraryName(name) {
			return nil, fmt.Errorf("invalid library name %q in %s", name, path)
		}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a fusion.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "fusion.toml")
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

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutputPath returns the absolute path of the bytecode output file.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Output.File)
}

// LibraryPath returns the absolute path of a library's database file.
func (m *Manifest) LibraryPath(lib Library) string {
	return filepath.Join(m.Dir, lib.Path)
}

// LibraryCachePath returns the absolute path of a library's SQLite
// cache, or the empty string when no cache is configured.
func (m *Manifest) LibraryCachePath(lib Library) string {
	if lib.Cache == "" {
		return ""
	}
	return filepath.Join(m.Dir, lib.Cache)
}
