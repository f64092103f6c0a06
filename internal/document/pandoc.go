// Package document renders markdown reports to PDF files.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/daydemir/devloop/internal/utils"
)

// Pandoc converts markdown to PDF with the pandoc CLI. Documents live at
// <Root>/<objective-slug>/<objective-slug>.pdf next to their markdown source.
type Pandoc struct {
	Binary string
	Root   string
	// PDFEngine is passed as --pdf-engine when set (e.g. wkhtmltopdf, tectonic)
	PDFEngine string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewPandoc creates a renderer writing under root
func NewPandoc(binary, root string) *Pandoc {
	if binary == "" {
		binary = "pandoc"
	}
	return &Pandoc{
		Binary: utils.ResolveBinaryPath(binary),
		Root:   root,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// PDFPath returns where the objective's PDF is (or will be) written
func (p *Pandoc) PDFPath(objective string) string {
	key := utils.ObjectiveKey(objective)
	return filepath.Join(p.Root, key, key+".pdf")
}

// MarkdownToPDF writes markdown and renders it, returning the PDF path
func (p *Pandoc) MarkdownToPDF(ctx context.Context, markdown, objective string) (string, error) {
	out := p.PDFPath(objective)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}

	src := strings.TrimSuffix(out, ".pdf") + ".md"
	if err := os.WriteFile(src, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	args := []string{src, "--from", "markdown", "-o", out}
	if p.PDFEngine != "" {
		args = append(args, "--pdf-engine", p.PDFEngine)
	}

	output, err := p.run(ctx, p.Binary, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", utils.BinaryNotFoundError("pandoc", "document.pandoc_binary")
		}
		return "", fmt.Errorf("pandoc failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if !utils.FileExists(out) {
		return "", fmt.Errorf("pandoc produced no output at %s", out)
	}
	return out, nil
}
