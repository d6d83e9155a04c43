package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/phsim/internal/constants"
)

// GlobalPath returns the path to the global .phsim directory.
// On Unix: ~/.phsim
// On Windows: %USERPROFILE%\.phsim
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName), nil
}

// LocalPath returns the .phsim directory for the given project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, constants.DataDirName)
}

// DBPath returns the history database path inside dir.
func DBPath(dir string) string {
	return filepath.Join(dir, constants.HistoryDBName)
}
