package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":              "<h1>Todo</h1>",
		"js/app.js":               "console.log(1)",
		"node_modules/x/index.js": "vendored",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestDeploy(t *testing.T) {
	var uploaded []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		switch r.URL.Path {
		case "/sites":
			_, _ = w.Write([]byte(`{"id":"site-1","url":"http://todo.netlify.app"}`))
		case "/sites/site-1/deploys":
			if r.Header.Get("Content-Type") != "application/zip" {
				t.Errorf("content type = %q", r.Header.Get("Content-Type"))
			}
			body, _ := io.ReadAll(r.Body)
			zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
			if err != nil {
				t.Errorf("invalid zip: %v", err)
			} else {
				for _, f := range zr.File {
					uploaded = append(uploaded, f.Name)
				}
			}
			_, _ = w.Write([]byte(`{"id":"dep-9","deploy_url":"https://dep-9--todo.netlify.app"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	n := NewNetlify(srv.URL+"/", "secret")
	res, err := n.Deploy(context.Background(), "todo", writeProject(t))
	if err != nil {
		t.Fatalf("Deploy() error: %v", err)
	}
	if res.SiteID != "site-1" || res.DeployID != "dep-9" || res.DeployURL != "https://dep-9--todo.netlify.app" {
		t.Errorf("result = %+v", res)
	}

	sort.Strings(uploaded)
	if len(uploaded) != 2 || uploaded[0] != "index.html" || uploaded[1] != "js/app.js" {
		t.Errorf("uploaded = %v, want project files without node_modules", uploaded)
	}
}

func TestDeployErrors(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		_, err := NewNetlify("", "").Deploy(context.Background(), "x", t.TempDir())
		if !errors.Is(err, ErrNoToken) {
			t.Errorf("error = %v, want ErrNoToken", err)
		}
	})

	t.Run("empty project", func(t *testing.T) {
		_, err := NewNetlify("http://unused", "tok").Deploy(context.Background(), "x", t.TempDir())
		if err == nil {
			t.Error("expected error for empty project")
		}
	})

	t.Run("api failure", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewNetlify(srv.URL, "bad").Deploy(context.Background(), "x", writeProject(t))
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, deploy must not retry", calls)
		}
	})
}
