// ABOUTME: Database path defaults and validation.
// ABOUTME: Follows the XDG base directory layout, with a working-directory fallback.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const dbFileName = "teamhub.db"

// ValidateDBPath cleans path and rejects locations a database should never be written to.
// Handles Unix, macOS and Windows paths.
func ValidateDBPath(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))

	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range []string{".git", ".svn", "node_modules", ".env", "credentials", "secret"} {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

// DefaultDBPath returns ./teamhub.db when it exists, otherwise the XDG data location
// (created on demand). Falls back to ./teamhub.db when the data directory is unusable.
func DefaultDBPath() string {
	cwdPath := "./" + dbFileName
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			return cwdPath
		}
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dir := filepath.Join(dataHome, "teamhub")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cwdPath
	}
	return filepath.Join(dir, dbFileName)
}
