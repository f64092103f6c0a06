package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daydemir/devloop/internal/llm"
	"github.com/daydemir/devloop/internal/logs"
	"github.com/daydemir/devloop/internal/prompts"
	"github.com/daydemir/devloop/internal/types"
)

// Engine holds what every prompt-driven role needs
type Engine struct {
	Completer llm.Completer
	// PromptsDir overrides embedded templates when it holds a file of the same name
	PromptsDir string
	// Recorder gets every prompt and raw answer. Transcripts are best-effort:
	// a Record error never fails the role; wrap with logs.Reporting to see it.
	Recorder logs.Recorder
}

// promptRole renders a template, asks the model and decodes the answer
type promptRole[In Input, Out any] struct {
	name   string
	engine *Engine
	decode func(raw string, meta prompts.Meta) (Out, error)
}

func (r *promptRole[In, Out]) Name() string {
	return r.name
}

func (r *promptRole[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	var zero Out
	objective := in.ObjectiveName()
	fail := func(err error) (Out, error) {
		return zero, &RoleError{Role: r.name, Objective: objective, Err: err}
	}

	tmpl, err := prompts.Load(r.engine.PromptsDir, r.name)
	if err != nil {
		return fail(err)
	}
	prompt, err := tmpl.Render(in)
	if err != nil {
		return fail(err)
	}

	recorder := r.engine.Recorder
	if recorder == nil {
		recorder = logs.Discard
	}
	_ = recorder.Record(objective, "prompt "+r.name, prompt)

	raw, err := r.engine.Completer.Complete(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	_ = recorder.Record(objective, "response "+r.name, raw)

	out, err := r.decode(raw, tmpl.Meta)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

// decodeObject extracts a JSON object and checks the template's required keys
func decodeObject[T any](raw string, meta prompts.Meta) (T, error) {
	var out T
	var fields map[string]json.RawMessage
	if err := llm.ExtractJSON(raw, &fields); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var missing []string
	for _, key := range meta.Required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if err := llm.ExtractJSON(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func decodeArray[T any](raw string, _ prompts.Meta) ([]T, error) {
	var out []T
	if err := llm.ExtractJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func decodeText(raw string, _ prompts.Meta) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", ErrMalformedResponse)
	}
	return text, nil
}

func decodeFiles(raw string, meta prompts.Meta) ([]types.CodeFile, error) {
	files, err := decodeArray[types.CodeFile](raw, meta)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		if strings.TrimSpace(f.Path) == "" {
			return nil, fmt.Errorf("%w: file %d has no path", ErrMalformedResponse, i)
		}
	}
	return files, nil
}

// NewPlanner returns the planner role
func NewPlanner(e *Engine) Role[PlanInput, types.Plan] {
	return &promptRole[PlanInput, types.Plan]{
		name:   "planner",
		engine: e,
		decode: func(raw string, meta prompts.Meta) (types.Plan, error) {
			plan, err := decodeObject[types.Plan](raw, meta)
			if err != nil {
				return plan, err
			}
			if err := plan.Validate(); err != nil {
				return plan, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			plan.Raw = raw
			return plan, nil
		},
	}
}

// NewResearcher returns the researcher role
func NewResearcher(e *Engine) Role[ResearchInput, types.ResearchResult] {
	return &promptRole[ResearchInput, types.ResearchResult]{
		name:   "researcher",
		engine: e,
		decode: decodeObject[types.ResearchResult],
	}
}

// NewFormatter returns the role that cleans up extracted page text
func NewFormatter(e *Engine) Role[FormatInput, string] {
	return &promptRole[FormatInput, string]{name: "formatter", engine: e, decode: decodeText}
}

// NewCoder returns the coder role
func NewCoder(e *Engine) Role[CodeInput, []types.CodeFile] {
	return &promptRole[CodeInput, []types.CodeFile]{name: "coder", engine: e, decode: decodeFiles}
}

type actionWire struct {
	Response string `json:"response"`
	Action   string `json:"action"`
}

// NewAction returns the role that picks the next action kind
func NewAction(e *Engine) Role[ActionInput, types.ActionDecision] {
	return &promptRole[ActionInput, types.ActionDecision]{
		name:   "action",
		engine: e,
		decode: func(raw string, meta prompts.Meta) (types.ActionDecision, error) {
			wire, err := decodeObject[actionWire](raw, meta)
			if err != nil {
				return types.ActionDecision{}, err
			}
			kind, err := types.ParseActionKind(wire.Action)
			if err != nil {
				return types.ActionDecision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			return types.ActionDecision{Narration: wire.Response, Kind: kind}, nil
		},
	}
}

// NewAnswer returns the role that answers questions about a project
func NewAnswer(e *Engine) Role[AnswerInput, string] {
	return &promptRole[AnswerInput, string]{
		name:   "answer",
		engine: e,
		decode: func(raw string, meta prompts.Meta) (string, error) {
			wire, err := decodeObject[struct {
				Response string `json:"response"`
			}](raw, meta)
			if err != nil {
				return "", err
			}
			return wire.Response, nil
		},
	}
}

// NewFeature returns the role that implements requested features
func NewFeature(e *Engine) Role[FeatureInput, []types.CodeFile] {
	return &promptRole[FeatureInput, []types.CodeFile]{name: "feature", engine: e, decode: decodeFiles}
}

// NewPatcher returns the role that fixes reported bugs
func NewPatcher(e *Engine) Role[PatchInput, []types.CodeFile] {
	return &promptRole[PatchInput, []types.CodeFile]{name: "patcher", engine: e, decode: decodeFiles}
}

// NewReporter returns the role that writes markdown reports
func NewReporter(e *Engine) Role[ReportInput, string] {
	return &promptRole[ReportInput, string]{name: "reporter", engine: e, decode: decodeText}
}

// NewDecision returns the role that breaks a request into function calls
func NewDecision(e *Engine) Role[DecisionInput, []types.DecisionItem] {
	return &promptRole[DecisionInput, []types.DecisionItem]{
		name:   "decision",
		engine: e,
		decode: func(raw string, meta prompts.Meta) ([]types.DecisionItem, error) {
			items, err := decodeArray[types.DecisionItem](raw, meta)
			if err != nil {
				return nil, err
			}
			for i := range items {
				if err := items[i].Validate(); err != nil {
					return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedResponse, i, err)
				}
			}
			return items, nil
		},
	}
}
