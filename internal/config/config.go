// Package hostappconfig resolves the host-side paths pyship keeps its state
// under (~/.config/pyship).
package hostappconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureFile ensures that the parent folder exists and the file exists.
// If the file already exists, it does nothing.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create/open file: %w", err)
	}
	defer f.Close()

	return nil
}

func ConfigBasePath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		homedir = "/usr/local/config/pyship"
	}

	return filepath.Join(homedir, ".config", "pyship")
}

func projectDataPath(projectName string) string {
	return filepath.Join(ConfigBasePath(), "projects", projectName)
}

func logsPath(projectName string) string {
	return filepath.Join(projectDataPath(projectName), "logs")
}

func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

func ImageCacheFile() string {
	return filepath.Join(ConfigBasePath(), "image-cache.json")
}

func BuildLogPath(projectName, buildID string) string {
	p := filepath.Join(logsPath(projectName), "build-"+buildID+".log")
	ensureFile(p)
	return p
}
