// Package cache maps build inputs to already-built image tags so repeated
// builds of an unchanged project skip Docker entirely.
//
// Two keys are kept per image: the recipe key (project path + effective
// recipe, cheap to compute before rendering) and the dockerfile key (exact
// rendered lines). Either hit short-circuits the build.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/0xa1bed0/pyship/internal/recipe"
)

type (
	CacheKey string
	ImageID  string
)

type Cache struct {
	cacheFilePath string // JSON file
	mu            FSMutex
}

type CacheManager interface {
	ResolveImage(
		ctx context.Context,
		projectPath string,
		rec *recipe.Recipe,
		imageExists func(context.Context, ImageID) bool,
		renderDockerfile func(ctx context.Context) (recipe.Dockerfile, error),
		buildImageSync func(ctx context.Context, df recipe.Dockerfile, tag string) (ImageID, error),
		forceBuild bool,
	) (ImageID, error)
}

const (
	buildingStaleAfter = 30 * time.Minute
	buildingPrefix     = "BUILDING:" // full format: BUILDING:<unixTs>:<dfSig>
)

func NewCacheManager(path string) (CacheManager, error) {
	if path == "" {
		return nil, errors.New("cache path required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	c := &Cache{
		cacheFilePath: path,
		mu:            NewFSMutex(path + ".lock"),
	}

	return c, nil
}

// ResolveImage returns a usable image for the project, building one only when
// no cached image survives. Cache failures are never fatal: the goal is a
// working image, not an efficient lookup, and Docker's own build cache keeps
// repeat builds cheap even when this layer degrades to read-only.
func (c *Cache) ResolveImage(
	ctx context.Context,
	projectPath string,
	rec *recipe.Recipe,

	imageExists func(context.Context, ImageID) bool,
	renderDockerfile func(ctx context.Context) (recipe.Dockerfile, error),
	buildImageSync func(ctx context.Context, df recipe.Dockerfile, tag string) (ImageID, error),
	forceBuild bool,
) (ImageID, error) {
	if imageExists == nil || buildImageSync == nil || renderDockerfile == nil {
		return "", errors.New("helpers imageExists, buildImageSync, and renderDockerfile are mandatory for image resolving")
	}

	hasValidRecipeKey := true
	recipeKey, err := CacheKeyRecipe(projectPath, rec)
	if err != nil {
		hasValidRecipeKey = false
	}

	for {
		// Cache errors degrade to a read-only in-memory state instead of
		// failing the build.
		readOnlyState := !hasValidRecipeKey

		// 40 means "wait 40 times for 50 milliseconds, ~2 seconds".
		if !readOnlyState {
			if err := c.mu.Lock(40); err != nil {
				readOnlyState = true
			}
		}

		state, stateLoadErr := c.loadState(readOnlyState)
		if stateLoadErr != nil {
			// Locked but unreadable state: unlock early and continue with an
			// empty read-only state. Unlock is idempotent.
			c.mu.Unlock()
			readOnlyState = true
			state = newReadonlyEmptyCacheState()
		}

		if !forceBuild {
			if id, ok := state.getImageIDByRecipeKey(recipeKey); ok {
				if isBuilding(id) {
					// Another process is building this image. Wait and retry.
					c.mu.Unlock()
					time.Sleep(150 * time.Millisecond)
					continue
				}
				if imageExists(ctx, id) {
					c.mu.Unlock()
					return id, nil
				}
				_ = state.cleanupRecipeKey(recipeKey)
			}
		}

		// Don't hold the lock while rendering the Dockerfile.
		c.mu.Unlock()
		dockerFile, renderErr := renderDockerfile(ctx)
		if renderErr != nil {
			return "", renderErr
		}

		if !readOnlyState {
			if err := c.mu.Lock(40); err != nil {
				readOnlyState = true
			}
		}

		state, stateLoadErr = c.loadState(readOnlyState)
		if stateLoadErr != nil {
			if readOnlyState {
				state = newReadonlyEmptyCacheState()
			} else {
				state = newEmptyCacheState(c.cacheFilePath)
			}
		}

		dockerfileKey := CacheKeyDockerfileLines(dockerFile)

		if !forceBuild {
			if id, ok := state.getImageIDByDockerfileKey(dockerfileKey); ok {
				if hasValidRecipeKey {
					_ = state.setRecipeKey(recipeKey, id)
				}
				if isBuilding(id) {
					c.mu.Unlock()
					time.Sleep(150 * time.Millisecond)
					continue
				}

				if imageExists(ctx, id) {
					c.mu.Unlock()
					return id, nil
				}

				_ = state.cleanupImageID(recipeKey, dockerfileKey)
			}
		}

		buildingID := newBuildingID(string(dockerfileKey))
		if hasValidRecipeKey {
			_ = state.setImageID(recipeKey, dockerfileKey, buildingID)
		} else {
			_ = state.setDockerfileKey(dockerfileKey, buildingID)
		}
		// Don't hold the lock while building the image.
		c.mu.Unlock()

		tag := composeImageTag(composePrefix(projectPath), recipeKey, dockerfileKey)

		dockerImageID, dockerImageBuildErr := buildImageSync(ctx, dockerFile, tag)
		if dockerImageBuildErr != nil {
			if e := c.mu.Lock(40); e != nil {
				return "", dockerImageBuildErr
			}

			if s, err := c.loadState(false); err == nil {
				if cur, ok := s.DockerfileKeyToImage[dockerfileKey]; ok && cur == buildingID {
					_ = s.cleanupImageID(recipeKey, dockerfileKey)
				}
			}

			c.mu.Unlock()
			return "", dockerImageBuildErr
		}

		if err := c.mu.Lock(40); err != nil {
			return dockerImageID, nil
		}

		if s, err := c.loadState(false); err == nil {
			// Overwrite whatever sits there. The cache file is world-editable,
			// so only an ID we just built ourselves is trusted.
			if hasValidRecipeKey {
				_ = s.setImageID(recipeKey, dockerfileKey, dockerImageID)
			} else {
				_ = s.setDockerfileKey(dockerfileKey, dockerImageID)
			}
		}

		c.mu.Unlock()
		return dockerImageID, nil
	}
}

func newBuildingID(dfSig string) ImageID {
	now := time.Now().Unix()
	return ImageID(fmt.Sprintf("%s%d:%s", buildingPrefix, now, dfSig))
}

func isBuilding(id ImageID) bool {
	return strings.HasPrefix(string(id), buildingPrefix)
}

func parseBuildingMarker(id ImageID) (time.Time, bool) {
	if !isBuilding(id) {
		return time.Time{}, false
	}
	rest := strings.TrimPrefix(string(id), buildingPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func isBuildingStale(id ImageID) bool {
	ts, ok := parseBuildingMarker(id)
	if !ok {
		return false
	}
	return time.Since(ts) > buildingStaleAfter
}
