package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/daydemir/devloop/internal/utils"
)

// KiloCode implements the Backend interface for Vibe CLI (Mistral).
// Vibe prints plain text, which ParseStream passes through as text events.
type KiloCode struct {
	BinaryPath string
	APIKey     string
	Stderr     io.Writer
}

// NewKiloCode creates a new KiloCode backend. An empty apiKey falls back to
// MISTRAL_API_KEY from the environment.
func NewKiloCode(binaryPath string, apiKey string) *KiloCode {
	if binaryPath == "" {
		binaryPath = "vibe"
	}
	if apiKey == "" {
		apiKey = os.Getenv("MISTRAL_API_KEY")
	}
	return &KiloCode{
		BinaryPath: utils.ResolveBinaryPath(binaryPath),
		APIKey:     apiKey,
		Stderr:     os.Stderr,
	}
}

func (k *KiloCode) Name() string {
	return "kilocode"
}

// Execute runs Vibe CLI with the given options and returns its output
func (k *KiloCode) Execute(ctx context.Context, opts ExecuteOptions) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, k.BinaryPath, k.buildArgs(opts)...)
	cmd.Dir = opts.WorkDir
	cmd.Stderr = k.Stderr
	cmd.Env = append(os.Environ(), fmt.Sprintf("MISTRAL_API_KEY=%s", k.APIKey))

	return startStreaming(cmd, func(err error) error {
		if errors.Is(err, exec.ErrNotFound) || strings.Contains(err.Error(), "executable file not found") {
			return utils.BinaryNotFoundError("vibe", "kilocode.binary")
		}
		return fmt.Errorf("failed to start vibe: %w", err)
	})
}

func (k *KiloCode) buildArgs(opts ExecuteOptions) []string {
	var args []string

	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--tools", strings.Join(opts.AllowedTools, ","))
	}
	args = append(args, "--prompt", opts.Prompt)
	return args
}
