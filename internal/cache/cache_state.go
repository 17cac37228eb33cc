package cache

import (
	"encoding/json"
	"errors"
	"os"
)

type cacheState struct {
	path                 string
	RecipeKeyToImage     map[CacheKey]ImageID `json:"recipe_to_image"`
	DockerfileKeyToImage map[CacheKey]ImageID `json:"df_to_image"`
}

func (st *cacheState) getImageIDByRecipeKey(key CacheKey) (ImageID, bool) {
	id, ok := st.RecipeKeyToImage[key]
	if !ok {
		return "", false
	}

	if isBuilding(id) && isBuildingStale(id) {
		// the cleanup is optional so no error propagated
		_ = st.cleanupRecipeKey(key)
		return "", false
	}

	return id, true
}

func (st *cacheState) getImageIDByDockerfileKey(key CacheKey) (ImageID, bool) {
	id, ok := st.DockerfileKeyToImage[key]
	if !ok {
		return "", false
	}

	if isBuilding(id) && isBuildingStale(id) {
		_ = st.cleanupDockerfileKey(key)
		return "", false
	}

	return id, true
}

func (st *cacheState) cleanupRecipeKey(key CacheKey) error {
	delete(st.RecipeKeyToImage, key)

	return st.commit()
}

func (st *cacheState) cleanupDockerfileKey(key CacheKey) error {
	delete(st.DockerfileKeyToImage, key)

	return st.commit()
}

func (st *cacheState) cleanupImageID(recipeKey, dockerfileKey CacheKey) error {
	delete(st.RecipeKeyToImage, recipeKey)
	delete(st.DockerfileKeyToImage, dockerfileKey)

	return st.commit()
}

func (st *cacheState) setRecipeKey(key CacheKey, imgID ImageID) error {
	st.RecipeKeyToImage[key] = imgID

	return st.commit()
}

func (st *cacheState) setDockerfileKey(key CacheKey, imgID ImageID) error {
	st.DockerfileKeyToImage[key] = imgID

	return st.commit()
}

func (st *cacheState) setImageID(recipeKey, dockerfileKey CacheKey, imgID ImageID) error {
	st.RecipeKeyToImage[recipeKey] = imgID
	st.DockerfileKeyToImage[dockerfileKey] = imgID

	return st.commit()
}

func (st *cacheState) commit() error {
	if st.path == "" {
		// readonly state
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}

func newEmptyCacheState(path string) *cacheState {
	return &cacheState{
		path:                 path,
		RecipeKeyToImage:     make(map[CacheKey]ImageID),
		DockerfileKeyToImage: make(map[CacheKey]ImageID),
	}
}

func newReadonlyEmptyCacheState() *cacheState {
	return newEmptyCacheState("")
}

func (c *Cache) loadState(readonly bool) (*cacheState, error) {
	data, err := os.ReadFile(c.cacheFilePath)
	path := c.cacheFilePath
	if readonly {
		path = ""
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newEmptyCacheState(path), nil
		}
		return nil, err
	}
	var st cacheState
	st.path = path
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.RecipeKeyToImage == nil {
		st.RecipeKeyToImage = make(map[CacheKey]ImageID)
	}
	if st.DockerfileKeyToImage == nil {
		st.DockerfileKeyToImage = make(map[CacheKey]ImageID)
	}
	return &st, nil
}
