package llm

import (
	"context"
	"fmt"
	"io"
)

// Backend represents an LLM execution backend
type Backend interface {
	// Name returns the backend name (e.g., "claude", "kilocode")
	Name() string

	// Execute runs the LLM with the given prompt and returns its output stream
	Execute(ctx context.Context, opts ExecuteOptions) (io.ReadCloser, error)
}

// ExecuteOptions contains options for LLM execution
type ExecuteOptions struct {
	Prompt       string
	Model        string
	AllowedTools []string
	WorkDir      string
}

// Completer turns a prompt into the model's final text answer
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StreamCompleter runs a Backend once per prompt and collects the result
type StreamCompleter struct {
	Backend      Backend
	Model        string
	WorkDir      string
	AllowedTools []string
	// Progress, when set, receives streamed text and tool use as it arrives
	Progress OutputHandler
}

// NewCompleter creates a completer with no tools enabled
func NewCompleter(backend Backend, model string) *StreamCompleter {
	return &StreamCompleter{Backend: backend, Model: model}
}

func (c *StreamCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	stream, err := c.Backend.Execute(ctx, ExecuteOptions{
		Prompt:       prompt,
		Model:        c.Model,
		AllowedTools: c.AllowedTools,
		WorkDir:      c.WorkDir,
	})
	if err != nil {
		return "", err
	}

	collector := NewCollector(c.Progress)
	parseErr := ParseStream(stream, collector)
	closeErr := stream.Close()

	if parseErr != nil {
		return "", fmt.Errorf("%s: read output: %w", c.Backend.Name(), parseErr)
	}
	if closeErr != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s exited: %w", c.Backend.Name(), closeErr)
	}
	return collector.Result(), nil
}

// New returns the backend named by name
func New(name, binary, apiKey string) (Backend, error) {
	switch name {
	case "", "claude":
		return NewClaude(binary), nil
	case "kilocode":
		return NewKiloCode(binary, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q (expected claude or kilocode)", name)
	}
}
