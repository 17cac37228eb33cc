package pyship

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xa1bed0/pyship/internal/buildcontext"
)

func newTestBuildContext(t *testing.T, files map[string]string) *buildcontext.Context {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	bctx, err := buildcontext.New(dir)
	if err != nil {
		t.Fatalf("buildcontext.New: %v", err)
	}
	return bctx
}

func TestPromptRebuildCachedNonInteractive(t *testing.T) {
	// Under go test stdin is not a terminal, so the prompt must be skipped
	// and the cached image kept.
	rebuild, err := promptRebuildCached("pyship:mlapp-abc")
	if err != nil {
		t.Fatalf("promptRebuildCached returned error: %v", err)
	}
	if rebuild {
		t.Fatal("non-interactive run must keep the cached image")
	}
}

func TestResolveRecipeDefaults(t *testing.T) {
	t.Parallel()

	bctx := newTestBuildContext(t, nil)
	rec, err := resolveRecipe(bctx, &recipeOptions{})
	if err != nil {
		t.Fatalf("resolveRecipe returned error: %v", err)
	}
	if rec.PythonVersion != "3.10" || rec.Workdir != "/app" {
		t.Fatalf("unexpected defaults: %+v", rec)
	}
}

func TestResolveRecipeFlagBeatsHint(t *testing.T) {
	t.Parallel()

	bctx := newTestBuildContext(t, map[string]string{".python-version": "3.12\n"})

	rec, err := resolveRecipe(bctx, &recipeOptions{})
	if err != nil {
		t.Fatalf("resolveRecipe returned error: %v", err)
	}
	if rec.PythonVersion != "3.12" {
		t.Fatalf("PythonVersion = %q, want hint 3.12", rec.PythonVersion)
	}

	rec, err = resolveRecipe(bctx, &recipeOptions{Python: "3.9"})
	if err != nil {
		t.Fatalf("resolveRecipe returned error: %v", err)
	}
	if rec.PythonVersion != "3.9" {
		t.Fatalf("PythonVersion = %q, want flag 3.9", rec.PythonVersion)
	}

	rec, err = resolveRecipe(bctx, &recipeOptions{NoHints: true})
	if err != nil {
		t.Fatalf("resolveRecipe returned error: %v", err)
	}
	if rec.PythonVersion != "3.10" {
		t.Fatalf("PythonVersion = %q, want default with --no-hints", rec.PythonVersion)
	}
}

func TestResolveRecipeOverrides(t *testing.T) {
	t.Parallel()

	bctx := newTestBuildContext(t, nil)
	opts := &recipeOptions{
		Entry:     "serve.py",
		Env:       []string{"MODE=prod", "EMPTY="},
		Toolchain: []string{"gcc"},
	}

	rec, err := resolveRecipe(bctx, opts)
	if err != nil {
		t.Fatalf("resolveRecipe returned error: %v", err)
	}
	if len(rec.EntryPoint) != 2 || rec.EntryPoint[1] != "serve.py" {
		t.Fatalf("EntryPoint = %v", rec.EntryPoint)
	}
	if rec.Env["MODE"] != "prod" || rec.Env["EMPTY"] != "" {
		t.Fatalf("Env = %v", rec.Env)
	}
	if len(rec.ToolchainPackages) != 1 || rec.ToolchainPackages[0] != "gcc" {
		t.Fatalf("ToolchainPackages = %v", rec.ToolchainPackages)
	}
}

func TestResolveRecipeBadEnv(t *testing.T) {
	t.Parallel()

	bctx := newTestBuildContext(t, nil)
	if _, err := resolveRecipe(bctx, &recipeOptions{Env: []string{"NOEQUALS"}}); err == nil {
		t.Fatal("expected error for malformed --env")
	}
}
