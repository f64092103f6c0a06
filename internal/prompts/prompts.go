package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.md
var embeddedPrompts embed.FS

// Meta is the YAML frontmatter at the top of every prompt template
type Meta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Response is the JSON shape the role must answer with: object, array or text
	Response string `yaml:"response"`
	// Required lists JSON keys that must be present in an object response
	Required []string `yaml:"required"`
}

// Template is a parsed prompt: frontmatter plus a text/template body
type Template struct {
	Meta Meta
	body *template.Template
}

// Render executes the template body with data
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Meta.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// List returns the file names of all embedded prompts, sorted
func List() ([]string, error) {
	entries, err := fs.ReadDir(embeddedPrompts, "templates")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the embedded prompt content
func Get(name string) (string, error) {
	// Normalize name
	if !strings.HasSuffix(name, ".md") {
		name = name + ".md"
	}

	content, err := embeddedPrompts.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("prompt %s not found: %w", name, err)
	}
	return string(content), nil
}

// GetForWorkspace returns prompt content, checking the workspace's prompts
// directory first then embedded
func GetForWorkspace(promptsDir, name string) (string, error) {
	if !strings.HasSuffix(name, ".md") {
		name = name + ".md"
	}

	if promptsDir != "" {
		if content, err := os.ReadFile(filepath.Join(promptsDir, name)); err == nil {
			return string(content), nil
		}
	}

	return Get(name)
}

// Load reads and parses a prompt, preferring the workspace copy
func Load(promptsDir, name string) (*Template, error) {
	content, err := GetForWorkspace(promptsDir, name)
	if err != nil {
		return nil, err
	}
	return Parse(name, content)
}

// Parse splits content into YAML frontmatter and a template body
func Parse(name, content string) (*Template, error) {
	front, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}

	var meta Meta
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return nil, fmt.Errorf("prompt %s: invalid frontmatter: %w", name, err)
	}
	if meta.Name == "" {
		meta.Name = strings.TrimSuffix(name, ".md")
	}
	switch meta.Response {
	case "":
		meta.Response = "object"
	case "object", "array", "text":
	default:
		return nil, fmt.Errorf("prompt %s: unknown response format %q", name, meta.Response)
	}

	tmpl, err := template.New(meta.Name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	return &Template{Meta: meta, body: tmpl}, nil
}

func splitFrontmatter(content string) (string, string, error) {
	content = strings.TrimLeft(content, "\ufeff\n\r\t ")
	if !strings.HasPrefix(content, "---") {
		return "", "", fmt.Errorf("missing frontmatter")
	}
	rest := strings.TrimPrefix(content, "---")
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return "", "", fmt.Errorf("unterminated frontmatter")
	}
	front := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(strings.TrimPrefix(body, "\r"), "\n")
	return front, body, nil
}
