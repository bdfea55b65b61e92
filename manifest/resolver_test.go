package manifest

import (
	"path/filepath"
	"testing"

	"github.com/tangpei1215/fusion/pkg/abc"
	"github.com/tangpei1215/fusion/pkg/library"
)

func writeLibraryDB(t *testing.T, path string, descs ...*library.ClassDesc) {
	t.Helper()
	if err := library.SaveDatabase(library.NewRegistry(descs...), path); err != nil {
		t.Fatal(err)
	}
}

func writeLibraryCache(t *testing.T, path string, descs ...*library.ClassDesc) {
	t.Helper()
	s, err := library.OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.PutAll(library.NewRegistry(descs...)); err != nil {
		t.Fatal(err)
	}
}

func TestResolverLoadsDatabase(t *testing.T) {
	dir := t.TempDir()
	writeLibraryDB(t, filepath.Join(dir, "flash.db"),
		&library.ClassDesc{FullName: abc.Packaged("flash.display", "Sprite")})
	writeManifest(t, dir, `
[project]
name = "demo"

[libraries.flash]
path = "flash.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	resolved, err := NewResolver(m).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("resolved %d libraries, want 1", len(resolved))
	}
	rl := resolved[0]
	if rl.Name != "flash" || rl.Cached {
		t.Errorf("resolved = %+v, want uncached flash", rl)
	}
	if _, ok := rl.Registry.Type(abc.Packaged("flash.display", "Sprite")); !ok {
		t.Error("Sprite missing from resolved registry")
	}
}

func TestResolverPrefersCache(t *testing.T) {
	dir := t.TempDir()
	// Only the cache exists; loading the .db path would fail.
	writeLibraryCache(t, filepath.Join(dir, "flash.sqlite"),
		&library.ClassDesc{FullName: abc.Packaged("flash.display", "Sprite")})
	writeManifest(t, dir, `
[project]
name = "demo"

[libraries.flash]
path = "flash.db"
cache = "flash.sqlite"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	resolved, err := NewResolver(m).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved) != 1 || !resolved[0].Cached {
		t.Fatalf("resolved = %+v, want one cached entry", resolved)
	}
}

func TestResolverMissingLibrary(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"

[libraries.flash]
path = "flash.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := NewResolver(m).Resolve(); err == nil {
		t.Error("missing library resolved without error")
	}
}

func TestResolverMergedRegistry(t *testing.T) {
	dir := t.TempDir()
	writeLibraryDB(t, filepath.Join(dir, "a.db"),
		&library.ClassDesc{FullName: abc.QN("Shared"), BaseType: abc.QN("FromA")},
		&library.ClassDesc{FullName: abc.QN("OnlyA")})
	writeLibraryDB(t, filepath.Join(dir, "b.db"),
		&library.ClassDesc{FullName: abc.QN("Shared"), BaseType: abc.QN("FromB")})
	writeManifest(t, dir, `
[project]
name = "demo"

[libraries.alpha]
path = "a.db"

[libraries.beta]
path = "b.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	merged, err := NewResolver(m).Registry()
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if merged.Len() != 2 {
		t.Errorf("merged registry has %d types, want 2", merged.Len())
	}
	d, ok := merged.Type(abc.QN("Shared"))
	if !ok {
		t.Fatal("Shared missing from merged registry")
	}
	// Entries merge in name order, so beta wins the conflict.
	if d.BaseType != abc.QN("FromB") {
		t.Errorf("Shared base = %v, want FromB", d.BaseType)
	}
}
