package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"maps"
	"path/filepath"
	"sort"

	"github.com/0xa1bed0/pyship/internal/recipe"
)

type recipeKeyPayload struct {
	Project string        `json:"project"`
	Recipe  recipe.Recipe `json:"recipe"`
}

// CacheKeyRecipe computes a deterministic key for a project path plus its
// effective recipe. Slice and map fields are normalized first so field order
// and nil-vs-empty differences don't produce distinct keys.
func CacheKeyRecipe(projectAbsPath string, in *recipe.Recipe) (CacheKey, error) {
	if in == nil {
		return "", errors.New("recipe required")
	}
	project := filepath.Clean(projectAbsPath)

	payload := recipeKeyPayload{
		Project: project,
		Recipe:  normalizeRecipe(*in),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return CacheKey(hex.EncodeToString(sum[:])), nil
}

func normalizeRecipe(r recipe.Recipe) recipe.Recipe {
	out := r // shallow copy is intentional

	if len(r.ToolchainPackages) == 0 {
		out.ToolchainPackages = []string{}
	} else {
		out.ToolchainPackages = append([]string{}, r.ToolchainPackages...)
		sort.Strings(out.ToolchainPackages)
	}

	if len(r.EntryPoint) == 0 {
		out.EntryPoint = []string{}
	} else {
		out.EntryPoint = append([]string{}, r.EntryPoint...)
	}

	if r.Env == nil {
		out.Env = make(map[string]string)
	} else {
		out.Env = make(map[string]string, len(r.Env))
		maps.Copy(out.Env, r.Env)
	}

	return out
}
