package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveBinaryPath finds a binary, checking PATH and common install locations
func ResolveBinaryPath(binaryPath string) string {
	// If it's an absolute path, use it directly
	if filepath.IsAbs(binaryPath) {
		return binaryPath
	}

	// Check if it's in PATH
	if path, err := exec.LookPath(binaryPath); err == nil {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return binaryPath
	}

	// Handle tilde prefix
	if strings.HasPrefix(binaryPath, "~") {
		return filepath.Join(home, binaryPath[1:])
	}

	name := filepath.Base(binaryPath)
	commonPaths := []string{
		filepath.Join(home, ".claude", "local", name),
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/opt/homebrew/bin", name),
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Return original, will fail with helpful error later
	return binaryPath
}

// BinaryNotFoundError returns a helpful error when an external tool is missing
func BinaryNotFoundError(name, configKey string) error {
	return fmt.Errorf(`%s not found in PATH

Install it, or set the full path in .devloop/config.yaml:
  %s: /path/to/%s`, name, configKey, name)
}
