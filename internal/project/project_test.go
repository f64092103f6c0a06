package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/daydemir/devloop/internal/types"
)

func TestSaveAndRender(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(t.TempDir())

	files := []types.CodeFile{
		{Path: "index.html", Content: "<h1>Todo</h1>\n"},
		{Path: "src/app.js", Content: "console.log('todo')"},
	}
	if err := ws.Save(ctx, "Todo App", files); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.Root, "todo-app", "src", "app.js")); err != nil {
		t.Fatalf("expected nested file to be written: %v", err)
	}

	md, err := ws.Render(ctx, "Todo App")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	first := strings.Index(md, "### index.html:")
	second := strings.Index(md, "### src/app.js:")
	if first == -1 || second == -1 {
		t.Fatalf("rendered markdown missing files:\n%s", md)
	}
	if first > second {
		t.Error("files should be rendered in sorted order")
	}
	if !strings.Contains(md, "console.log('todo')") {
		t.Error("rendered markdown missing file content")
	}
}

func TestSaveRejectsEscapingPaths(t *testing.T) {
	ws := NewWorkspace(t.TempDir())

	tests := []struct {
		name string
		path string
	}{
		{name: "parent traversal", path: "../evil.sh"},
		{name: "nested traversal", path: "a/../../evil.sh"},
		{name: "absolute", path: "/etc/passwd"},
		{name: "empty", path: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ws.Save(context.Background(), "app", []types.CodeFile{{Path: tt.path, Content: "x"}})
			if err == nil {
				t.Errorf("Save(%q) expected error, got nil", tt.path)
			}
		})
	}
}

func TestRenderMissingProject(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	md, err := ws.Render(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if md != "" {
		t.Errorf("expected empty render, got %q", md)
	}
}

func TestRenderSkipsBinaryAndVendorDirs(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(t.TempDir())
	dir := ws.Path("app")

	if err := os.MkdirAll(filepath.Join(dir, "node_modules", "x"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "node_modules", "x", "index.js"), []byte("vendored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0xff, 0xfe, 0xfd}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('hi')"), 0644); err != nil {
		t.Fatal(err)
	}

	md, err := ws.Render(ctx, "app")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(md, "vendored") || strings.Contains(md, "logo.png") {
		t.Errorf("render should skip vendor dirs and binary files:\n%s", md)
	}
	if !strings.Contains(md, "main.py") {
		t.Error("render should include main.py")
	}
}

func TestDistinctObjectivesDoNotShareProjects(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(t.TempDir())

	pairs := [][2]string{
		{"Todo App", "todo-app"},
		{"カレンダー", "日記アプリ"},
	}
	for _, pair := range pairs {
		for _, name := range pair {
			if err := ws.Save(ctx, name, []types.CodeFile{{Path: "main.go", Content: "// " + name}}); err != nil {
				t.Fatalf("Save(%q) error: %v", name, err)
			}
		}
		for _, name := range pair {
			md, err := ws.Render(ctx, name)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(md, "// "+name) {
				t.Errorf("project of %q was overwritten:\n%s", name, md)
			}
		}
	}
}

func TestRenderCutsOnRuneBoundary(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(t.TempDir())

	// Two-byte runes after one ASCII byte put the cut mid-rune
	content := "a" + strings.Repeat("é", maxRenderedFileBytes/2)
	if err := ws.Save(ctx, "app", []types.CodeFile{{Path: "big.txt", Content: content}}); err != nil {
		t.Fatal(err)
	}

	md, err := ws.Render(ctx, "app")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !utf8.ValidString(md) {
		t.Error("rendered markdown is not valid UTF-8")
	}
	if !strings.Contains(md, content[:maxRenderedFileBytes-1]+"\n```") {
		t.Error("render should keep every whole rune before the limit")
	}
}
