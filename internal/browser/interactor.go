package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/daydemir/devloop/internal/llm"
	"github.com/daydemir/devloop/internal/logs"
	"github.com/daydemir/devloop/internal/prompts"
)

// WebTools are the CLI tools the interactor may use
var WebTools = []string{"WebFetch", "WebSearch"}

// LLMInteractor carries out free-form browser tasks by handing them to an
// LLM backend with web tools enabled
type LLMInteractor struct {
	Backend    llm.Backend
	Model      string
	PromptsDir string
	Recorder   logs.Recorder
	// Progress receives the model's streamed output when set
	Progress llm.OutputHandler
}

// Interact runs the task and returns the model's summary of what it did
func (i *LLMInteractor) Interact(ctx context.Context, objective, task string) (string, error) {
	tmpl, err := prompts.Load(i.PromptsDir, "browser")
	if err != nil {
		return "", err
	}
	prompt, err := tmpl.Render(struct {
		Prompt    string
		Objective string
	}{Prompt: task, Objective: objective})
	if err != nil {
		return "", err
	}

	recorder := i.Recorder
	if recorder == nil {
		recorder = logs.Discard
	}
	_ = recorder.Record(objective, "prompt browser", prompt)

	completer := &llm.StreamCompleter{
		Backend:      i.Backend,
		Model:        i.Model,
		AllowedTools: WebTools,
		Progress:     i.Progress,
	}
	summary, err := completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("browser interaction: %w", err)
	}
	_ = recorder.Record(objective, "response browser", summary)
	return strings.TrimSpace(summary), nil
}
