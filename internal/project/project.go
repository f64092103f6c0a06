// Package project stores generated code for an objective and renders it
// back to markdown for the roles that need to read the current project.
package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/daydemir/devloop/internal/types"
	"github.com/daydemir/devloop/internal/utils"
)

// maxRenderedFileBytes caps how much of a single file is rendered
const maxRenderedFileBytes = 64 * 1024

// skipDirs are never rendered
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"dist":         true,
}

// Workspace owns the directory tree of all generated projects
type Workspace struct {
	Root string
}

// NewWorkspace creates a Workspace rooted at root
func NewWorkspace(root string) *Workspace {
	return &Workspace{Root: root}
}

// Path returns the directory of an objective's project
func (w *Workspace) Path(objective string) string {
	return Path(w.Root, objective)
}

// Path returns the directory of an objective's project under root
func Path(root, objective string) string {
	return filepath.Join(root, utils.ObjectiveKey(objective))
}

// Save writes code artifacts into the objective's project directory
func (w *Workspace) Save(ctx context.Context, objective string, files []types.CodeFile) error {
	dir := w.Path(objective)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create project dir: %w", err)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := resolve(dir, f.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("cannot create dir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", f.Path, err)
		}
	}
	return nil
}

// resolve joins a generated relative path onto dir, refusing escapes
func resolve(dir, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("code file has empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("code file path %q must be relative", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("code file path %q escapes the project", rel)
	}
	return filepath.Join(dir, clean), nil
}

// Render returns every text file of the project as a markdown document
func (w *Workspace) Render(ctx context.Context, objective string) (string, error) {
	dir := w.Path(objective)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot walk project: %w", err)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cannot read %s: %w", path, err)
		}
		if !utf8.Valid(content) {
			continue
		}
		if len(content) > maxRenderedFileBytes {
			cut := maxRenderedFileBytes
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut]
		}
		rel, _ := filepath.Rel(dir, path)
		sb.WriteString(fmt.Sprintf("### %s:\n\n```\n%s\n```\n\n", filepath.ToSlash(rel), strings.TrimRight(string(content), "\n")))
	}
	return sb.String(), nil
}
