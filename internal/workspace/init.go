package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daydemir/devloop/internal/prompts"
)

// Init creates a new devloop workspace in dir
func Init(dir string, force bool) error {
	wsPath := filepath.Join(dir, Dir)

	// Check if workspace already exists
	if _, err := os.Stat(wsPath); err == nil {
		if !force {
			return ErrWorkspaceExists
		}
		// Remove existing workspace if force
		if err := os.RemoveAll(wsPath); err != nil {
			return fmt.Errorf("failed to remove existing workspace: %w", err)
		}
	}

	dirs := []string{
		wsPath,
		filepath.Join(wsPath, "prompts"),
		ProjectsPath(dir),
		LogsPath(dir),
		ScreenshotsPath(dir),
		DocumentsPath(dir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	if err := writeFile(ConfigPath(dir), defaultConfig); err != nil {
		return err
	}

	// Copy prompt templates so they can be customised per workspace
	if err := copyPrompts(filepath.Join(wsPath, "prompts")); err != nil {
		return err
	}

	return nil
}

func copyPrompts(dst string) error {
	names, err := prompts.List()
	if err != nil {
		return fmt.Errorf("failed to list prompts: %w", err)
	}
	for _, name := range names {
		content, err := prompts.Get(name)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dst, name), content); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

const defaultConfig = `# devloop configuration

llm:
  backend: claude
  model: sonnet

claude:
  binary: claude

kilocode:
  binary: kilocode
  # falls back to MISTRAL_API_KEY when empty
  api_key: ""

session:
  # memory keeps state for the life of the process; sqlite persists it
  # under .devloop/ so "devloop reply" can answer a run in another terminal
  backend: sqlite

orchestrator:
  poll_interval: 5s
  # 0 waits for a human answer until the run is cancelled
  suspend_timeout: 0s
  search_concurrency: 4
  # stop | continue
  decision_failure: stop

server:
  host: 127.0.0.1
  port: 1337

search:
  endpoint: https://html.duckduckgo.com/html/

document:
  pandoc_binary: pandoc
  # e.g. wkhtmltopdf or tectonic; empty uses pandoc's default
  pdf_engine: ""

netlify:
  api_url: https://api.netlify.com/api/v1
  # token is read from DEVLOOP_NETLIFY_TOKEN when left empty
  token: ""
`
