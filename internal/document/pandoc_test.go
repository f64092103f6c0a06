package document

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRun pretends to be pandoc by copying the markdown to the -o target
func fakeRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var src, out string
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			out = args[i+1]
		}
	}
	src = args[0]
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return nil, os.WriteFile(out, append([]byte("%PDF-1.4\n"), data...), 0644)
}

func TestMarkdownToPDF(t *testing.T) {
	p := NewPandoc("pandoc", t.TempDir())
	p.run = fakeRun

	path, err := p.MarkdownToPDF(context.Background(), "# Report\n\nHello", "Todo App")
	if err != nil {
		t.Fatalf("MarkdownToPDF() error: %v", err)
	}
	if path != p.PDFPath("Todo App") {
		t.Errorf("path = %q, want %q", path, p.PDFPath("Todo App"))
	}
	if base := filepath.Base(path); !strings.HasPrefix(base, "todo-app-") || !strings.HasSuffix(base, ".pdf") {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "%PDF") || !strings.Contains(string(data), "# Report") {
		t.Errorf("unexpected pdf content %q", data)
	}
	if _, err := os.Stat(strings.TrimSuffix(path, ".pdf") + ".md"); err != nil {
		t.Errorf("markdown source not kept: %v", err)
	}
}

func TestMarkdownToPDFErrors(t *testing.T) {
	tests := []struct {
		name    string
		run     func(ctx context.Context, name string, args ...string) ([]byte, error)
		wantMsg string
	}{
		{
			name: "missing binary",
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
			},
			wantMsg: "pandoc not found",
		},
		{
			name: "render failure",
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return []byte("pdflatex not found"), errors.New("exit status 43")
			},
			wantMsg: "pdflatex not found",
		},
		{
			name: "no output",
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return nil, nil
			},
			wantMsg: "produced no output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPandoc("pandoc", t.TempDir())
			p.run = tt.run
			_, err := p.MarkdownToPDF(context.Background(), "# x", "app")
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestPDFEngineFlag(t *testing.T) {
	var got []string
	p := NewPandoc("pandoc", t.TempDir())
	p.PDFEngine = "tectonic"
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = args
		return fakeRun(ctx, name, args...)
	}
	if _, err := p.MarkdownToPDF(context.Background(), "# x", "app"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(got, " "), "--pdf-engine tectonic") {
		t.Errorf("args = %v", got)
	}
}
