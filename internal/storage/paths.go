package storage

import (
	"os"
	"path/filepath"
)

// PathManager handles path resolution for NovaAI storage.
type PathManager struct {
	homeDir string
	dataDir string
}

// NewPathManager creates a path manager rooted at ~/.novaai.
func NewPathManager() *PathManager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &PathManager{
		homeDir: homeDir,
		dataDir: filepath.Join(homeDir, ".novaai"),
	}
}

// DataDir returns the main NovaAI data directory, creating it if needed.
func (pm *PathManager) DataDir() (string, error) {
	if err := os.MkdirAll(pm.dataDir, 0755); err != nil {
		return "", err
	}
	return pm.dataDir, nil
}

// ChatDatabasePath returns the path for the chat database.
func (pm *PathManager) ChatDatabasePath() (string, error) {
	dir, err := pm.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chat.db"), nil
}

// ConfigPath returns the path for the main configuration file.
func (pm *PathManager) ConfigPath() (string, error) {
	dir, err := pm.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultPathManager is a shared instance for convenience.
var DefaultPathManager = NewPathManager()
