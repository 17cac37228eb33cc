package project

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var dockerNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func TestResolveProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := ResolveProject(dir, "pyship:mlapp-abc")

	if p.Path != dir {
		t.Errorf("Path = %q, want %q", p.Path, dir)
	}
	if p.ImageID != "pyship:mlapp-abc" {
		t.Errorf("ImageID = %q", p.ImageID)
	}
	if !dockerNameRe.MatchString(p.Name) {
		t.Errorf("Name %q is not Docker-safe", p.Name)
	}
	if !strings.Contains(p.Name, strings.ToLower(filepath.Base(dir))) {
		t.Errorf("Name %q does not carry the directory name %q", p.Name, filepath.Base(dir))
	}
}

func TestProjectNameEncodesPath(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	sub := filepath.Join(base, "ML App", "api")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	name := projectNameFromPath(sub)
	if !dockerNameRe.MatchString(name) {
		t.Fatalf("name %q is not Docker-safe", name)
	}
	if !strings.HasSuffix(name, "ml_app-api") {
		t.Fatalf("name = %q, want ml_app-api suffix", name)
	}
}

func TestProjectNameFileFallsBackToDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "main.py")
	if err := os.WriteFile(file, []byte("pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got, want := projectNameFromPath(file), projectNameFromPath(dir); got != want {
		t.Fatalf("file path name = %q, dir name = %q, want equal", got, want)
	}
}

func TestProjectNameDistinctPerPath(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	for _, d := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(base, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	if projectNameFromPath(filepath.Join(base, "a")) == projectNameFromPath(filepath.Join(base, "b")) {
		t.Fatal("sibling projects must not share a name")
	}
}
