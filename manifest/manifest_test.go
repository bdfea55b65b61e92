package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "fusion.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "ball-game"
version = "0.1.0"

[source]
dirs = ["src", "lib"]
entry = "Main"

[libraries.playerglobal]
path = "playerglobal.db"
cache = "playerglobal.sqlite"

[output]
file = "ball-game.fabc"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "ball-game" {
		t.Errorf("project name = %q, want ball-game", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.Source.Entry != "Main" {
		t.Errorf("source entry = %q, want Main", m.Source.Entry)
	}
	if len(m.Libraries) != 1 {
		t.Errorf("libraries count = %d, want 1", len(m.Libraries))
	}
	lib, ok := m.Libraries["playerglobal"]
	if !ok || lib.Path != "playerglobal.db" {
		t.Errorf("playerglobal lib = %v, want path playerglobal.db", lib)
	}
	if m.Output.File != "ball-game.fabc" {
		t.Errorf("output file = %q, want ball-game.fabc", m.Output.File)
	}
	if m.Dir == "" {
		t.Error("Dir not set at load time")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Output.File != "demo.fabc" {
		t.Errorf("default output file = %q, want demo.fabc", m.Output.File)
	}
}

func TestLoadManifestRejectsReservedLibraryName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"

[libraries.Object]
path = "object.db"
`)

	if _, err := Load(dir); err == nil {
		t.Error("reserved library name accepted")
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("missing fusion.toml loaded without error")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
`)
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("manifest not found from nested dir")
	}
	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("found unexpected manifest: %+v", m)
	}
}

func TestPathHelpers(t *testing.T) {
	dir := t.TempDir()
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
	lib := m.Libraries["flash"]
	if got, want := m.LibraryPath(lib), filepath.Join(m.Dir, "flash.db"); got != want {
		t.Errorf("LibraryPath = %q, want %q", got, want)
	}
	if got, want := m.LibraryCachePath(lib), filepath.Join(m.Dir, "flash.sqlite"); got != want {
		t.Errorf("LibraryCachePath = %q, want %q", got, want)
	}
	if got := m.LibraryCachePath(Library{Path: "x.db"}); got != "" {
		t.Errorf("LibraryCachePath without cache = %q, want empty", got)
	}
	if got, want := m.OutputPath(), filepath.Join(m.Dir, "demo.fabc"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}
