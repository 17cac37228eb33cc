package cache

import (
	"testing"

	"github.com/0xa1bed0/pyship/internal/recipe"
)

func TestCacheKeyDockerfileLinesDeterministic(t *testing.T) {
	t.Parallel()

	lines := []string{"FROM python:3.10-slim", "WORKDIR /app"}
	if CacheKeyDockerfileLines(lines) != CacheKeyDockerfileLines(lines) {
		t.Fatal("same lines must hash to the same key")
	}
	if len(CacheKeyDockerfileLines(lines)) != 64 {
		t.Fatal("key is not a sha256 hex digest")
	}
}

func TestCacheKeyDockerfileLinesBoundaries(t *testing.T) {
	t.Parallel()

	// Length prefixing keeps differently-split sequences distinct.
	a := CacheKeyDockerfileLines([]string{"ab", "c"})
	b := CacheKeyDockerfileLines([]string{"a", "bc"})
	if a == b {
		t.Fatal("line boundaries must affect the key")
	}
}

func TestCacheKeyRecipeNormalization(t *testing.T) {
	t.Parallel()

	base := recipe.Default()

	shuffled := base
	shuffled.ToolchainPackages = []string{"python3-dev", "gcc"}
	base.ToolchainPackages = []string{"gcc", "python3-dev"}

	k1, err := CacheKeyRecipe("/srv/app", &base)
	if err != nil {
		t.Fatalf("CacheKeyRecipe returned error: %v", err)
	}
	k2, err := CacheKeyRecipe("/srv/app", &shuffled)
	if err != nil {
		t.Fatalf("CacheKeyRecipe returned error: %v", err)
	}
	if k1 != k2 {
		t.Fatal("toolchain package order must not change the key")
	}
}

func TestCacheKeyRecipeNilVsEmptyEnv(t *testing.T) {
	t.Parallel()

	withNil := recipe.Default()
	withNil.Env = nil
	withEmpty := recipe.Default()
	withEmpty.Env = map[string]string{}

	k1, _ := CacheKeyRecipe("/srv/app", &withNil)
	k2, _ := CacheKeyRecipe("/srv/app", &withEmpty)
	if k1 != k2 {
		t.Fatal("nil and empty env must produce the same key")
	}
}

func TestCacheKeyRecipeSensitivity(t *testing.T) {
	t.Parallel()

	rec := recipe.Default()
	k1, _ := CacheKeyRecipe("/srv/app", &rec)

	changed := rec
	changed.PythonVersion = "3.11"
	k2, _ := CacheKeyRecipe("/srv/app", &changed)
	if k1 == k2 {
		t.Fatal("python version change must change the key")
	}

	k3, _ := CacheKeyRecipe("/srv/other", &rec)
	if k1 == k3 {
		t.Fatal("project path must be part of the key")
	}

	// Clean-equivalent paths collapse to one key.
	k4, _ := CacheKeyRecipe("/srv//app/", &rec)
	if k1 != k4 {
		t.Fatal("unclean path variants must not change the key")
	}
}
