// Package deploy publishes generated projects to a static hosting provider.
package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daydemir/devloop/internal/types"
)

// DefaultAPIURL is Netlify's REST API base
const DefaultAPIURL = "https://api.netlify.com/api/v1"

// ErrNoToken is returned when no Netlify access token is configured
var ErrNoToken = errors.New("netlify token not configured (set netlify.token or DEVLOOP_NETLIFY_TOKEN)")

// skipDirs are never uploaded
var skipDirs = map[string]bool{".git": true, "node_modules": true, "__pycache__": true, ".venv": true}

// Netlify creates a fresh site per deploy and uploads the project as a zip.
// No retries are attempted.
type Netlify struct {
	APIURL string
	Token  string
	Client *http.Client
}

// NewNetlify creates a client. An empty apiURL uses DefaultAPIURL.
func NewNetlify(apiURL, token string) *Netlify {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Netlify{
		APIURL: strings.TrimRight(apiURL, "/"),
		Token:  token,
		Client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type siteResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type deployResponse struct {
	ID        string `json:"id"`
	DeployURL string `json:"deploy_url"`
	SSLURL    string `json:"ssl_url"`
}

// Deploy uploads projectDir as a new site and returns the deploy metadata
func (n *Netlify) Deploy(ctx context.Context, objective, projectDir string) (types.DeployResult, error) {
	if n.Token == "" {
		return types.DeployResult{}, ErrNoToken
	}

	archive, err := zipDir(projectDir)
	if err != nil {
		return types.DeployResult{}, fmt.Errorf("package %s: %w", objective, err)
	}

	var site siteResponse
	if err := n.do(ctx, http.MethodPost, "/sites", "application/json", strings.NewReader("{}"), &site); err != nil {
		return types.DeployResult{}, fmt.Errorf("create site: %w", err)
	}
	if site.ID == "" {
		return types.DeployResult{}, fmt.Errorf("create site: response has no id")
	}

	var dep deployResponse
	path := "/sites/" + site.ID + "/deploys"
	if err := n.do(ctx, http.MethodPost, path, "application/zip", bytes.NewReader(archive), &dep); err != nil {
		return types.DeployResult{}, fmt.Errorf("deploy site %s: %w", site.ID, err)
	}

	url := dep.DeployURL
	if url == "" {
		url = dep.SSLURL
	}
	return types.DeployResult{SiteID: site.ID, DeployID: dep.ID, DeployURL: url}, nil
}

func (n *Netlify) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, n.APIURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.Token)
	req.Header.Set("Content-Type", contentType)

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("netlify returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode netlify response: %w", err)
	}
	return nil
}

// zipDir archives every regular file under dir with slash-separated paths
func zipDir(dir string) ([]byte, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := 0

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if files == 0 {
		return nil, fmt.Errorf("%s has no files to deploy", dir)
	}
	return buf.Bytes(), nil
}
