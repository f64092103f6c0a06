package workspace

import (
	"errors"
	"os"
	"path/filepath"
)

const Dir = ".devloop"

var ErrNoWorkspace = errors.New("no devloop workspace found (run 'devloop init' first)")
var ErrWorkspaceExists = errors.New("devloop workspace already exists (use --force to overwrite)")

// Find walks up from cwd looking for .devloop/ directory
func Find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindFrom(dir)
}

// FindFrom walks up from dir looking for .devloop/ directory
func FindFrom(dir string) (string, error) {
	for {
		wsPath := filepath.Join(dir, Dir)
		if info, err := os.Stat(wsPath); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

// Path returns the .devloop directory path for a workspace
func Path(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir)
}

// ConfigPath returns the config.yaml path
func ConfigPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir, "config.yaml")
}

// ProjectsPath returns the directory holding generated projects
func ProjectsPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir, "projects")
}

// LogsPath returns the directory holding role transcripts
func LogsPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir, "logs")
}

// ScreenshotsPath returns the directory holding page snapshots
func ScreenshotsPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir, "screenshots")
}

// DocumentsPath returns the directory holding generated reports
func DocumentsPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, Dir, "docs")
}
