package manifest

import (
	"fmt"
	"os"
	"sort"

	"github.com/tangpei1215/fusion/pkg/library"
)

// ResolvedLib represents a library entry resolved to an installed
// registry.
type ResolvedLib struct {
	Name     string            // entry name in fusion.toml
	Path     string            // database file actually loaded
	Cached   bool              // loaded from the SQLite cache
	Registry *library.Registry // the library's types
}

// Resolver loads the libraries a manifest names.
type Resolver struct {
	manifest *Manifest
}

// NewResolver creates a resolver for the given manifest.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve loads every configured library, preferring its SQLite cache
// when one exists, and returns the entries sorted by name.
func (r *Resolver) Resolve() ([]ResolvedLib, error) {
	var resolved []ResolvedLib

	for name, lib := range r.manifest.Libraries {
		rl, err := r.resolveOne(name, lib)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved = append(resolved, rl)
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Name < resolved[j].Name
	})
	return resolved, nil
}

func (r *Resolver) resolveOne(name string, lib Library) (ResolvedLib, error) {
	if cache := r.manifest.LibraryCachePath(lib); cache != "" {
		if _, err := os.Stat(cache); err == nil {
			store, err := library.OpenStore(cache)
			if err != nil {
				return ResolvedLib{}, err
			}
			defer store.Close()
			reg, err := store.LoadRegistry()
			if err != nil {
				return ResolvedLib{}, err
			}
			return ResolvedLib{Name: name, Path: cache, Cached: true, Registry: reg}, nil
		}
	}

	path := r.manifest.LibraryPath(lib)
	reg, err := library.LoadDatabase(path)
	if err != nil {
		return ResolvedLib{}, err
	}
	return ResolvedLib{Name: name, Path: path, Registry: reg}, nil
}

// Registry resolves all libraries and merges them into one registry, in
// entry-name order so later entries win on conflicting type names.
func (r *Resolver) Registry() (*library.Registry, error) {
	resolved, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	merged := library.NewRegistry()
	for _, rl := range resolved {
		for _, d := range rl.Registry.All() {
			merged.Add(d)
		}
	}
	return merged, nil
}
