package roles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/daydemir/devloop/internal/types"
	"github.com/daydemir/devloop/internal/utils"
)

// DefaultCommandTimeout bounds each command the runner executes
const DefaultCommandTimeout = 2 * time.Minute

// maxCommandOutput caps how much of a command's output is recorded
const maxCommandOutput = 4000

// CommandExecutor runs one shell command in dir and returns combined output
type CommandExecutor interface {
	Run(ctx context.Context, dir, command string) (string, error)
}

// MessageAppender records system messages; satisfied by session.Store
type MessageAppender interface {
	AppendSystemMessage(ctx context.Context, objective, text string) (types.Message, error)
}

// ShellExecutor runs commands through the platform shell
type ShellExecutor struct {
	Timeout time.Duration
}

func (s ShellExecutor) Run(ctx context.Context, dir, command string) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out.String(), fmt.Errorf("timed out after %s", timeout)
	}
	return out.String(), err
}

// runnerRole asks the model for commands and executes them in the project
type runnerRole struct {
	plan     *promptRole[RunInput, types.RunReport]
	executor CommandExecutor
	messages MessageAppender
}

// NewRunner returns the runner role. Each command's output is appended to
// the objective's log as a system message; the first failing command stops
// the run and its failure is recorded rather than returned, so the user can
// follow up with a bug report.
func NewRunner(e *Engine, executor CommandExecutor, messages MessageAppender) Role[RunInput, types.RunReport] {
	return &runnerRole{
		plan: &promptRole[RunInput, types.RunReport]{
			name:   "runner",
			engine: e,
			decode: decodeObject[types.RunReport],
		},
		executor: executor,
		messages: messages,
	}
}

func (r *runnerRole) Name() string {
	return r.plan.Name()
}

func (r *runnerRole) Execute(ctx context.Context, in RunInput) (types.RunReport, error) {
	report, err := r.plan.Execute(ctx, in)
	if err != nil {
		return report, err
	}

	var combined strings.Builder
	for _, command := range report.Commands {
		command = strings.TrimSpace(command)
		if command == "" {
			continue
		}

		output, runErr := r.executor.Run(ctx, in.ProjectPath, command)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}

		msg := fmt.Sprintf("$ %s\n%s", command, utils.Truncate(strings.TrimSpace(output), maxCommandOutput))
		if runErr != nil {
			msg += fmt.Sprintf("\nCommand failed: %v", runErr)
		}
		if _, err := r.messages.AppendSystemMessage(ctx, in.Objective, msg); err != nil {
			return report, &RoleError{Role: r.Name(), Objective: in.Objective, Err: err}
		}

		combined.WriteString(msg)
		combined.WriteString("\n")
		if runErr != nil {
			break
		}
	}
	report.Output = combined.String()
	return report, nil
}
