package model

import (
	"os"
	"path/filepath"
)

// HomeDirName is the per-user directory holding config, cache and the result store
const HomeDirName = ".codecritic"

// defaultDir returns a path under ~/.codecritic, or a relative path if home is unknown
func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(HomeDirName, name)
	}
	return filepath.Join(home, HomeDirName, name)
}
