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

// Claude implements the Backend interface for Claude Code CLI
type Claude struct {
	BinaryPath string
	// Stderr receives the CLI's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewClaude creates a new Claude backend
func NewClaude(binaryPath string) *Claude {
	if binaryPath == "" {
		binaryPath = "claude"
	}
	return &Claude{BinaryPath: utils.ResolveBinaryPath(binaryPath), Stderr: os.Stderr}
}

func (c *Claude) Name() string {
	return "claude"
}

// Execute runs Claude Code in print mode and returns its stream-json output
func (c *Claude) Execute(ctx context.Context, opts ExecuteOptions) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.BinaryPath, c.buildArgs(opts)...)
	cmd.Dir = opts.WorkDir
	cmd.Stderr = c.Stderr

	return startStreaming(cmd, func(err error) error {
		if errors.Is(err, exec.ErrNotFound) || strings.Contains(err.Error(), "executable file not found") {
			return utils.BinaryNotFoundError("claude", "claude.binary")
		}
		return fmt.Errorf("failed to start claude: %w", err)
	})
}

func (c *Claude) buildArgs(opts ExecuteOptions) []string {
	args := []string{"--print"}

	if len(opts.AllowedTools) > 0 {
		// Tool use is unattended; the allow-list bounds what it can touch
		args = append(args, "--dangerously-skip-permissions",
			"--allowedTools", strings.Join(opts.AllowedTools, ","))
	}

	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}

	args = append(args, "--output-format", "stream-json", "--verbose")
	args = append(args, "-p", opts.Prompt)
	return args
}

func startStreaming(cmd *exec.Cmd, wrapStart func(error) error) (io.ReadCloser, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, wrapStart(err)
	}
	// Return a wrapper that waits for the command when closed
	return &cmdReader{ReadCloser: stdout, cmd: cmd}, nil
}

// cmdReader wraps an io.ReadCloser and waits for the command on close
type cmdReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *cmdReader) Close() error {
	closeErr := r.ReadCloser.Close()
	waitErr := r.cmd.Wait()
	if waitErr != nil {
		return waitErr
	}
	return closeErr
}
