package roles

import (
	"github.com/daydemir/devloop/internal/types"
)

// Input is implemented by every role request so failures and transcripts
// can be attributed to an objective
type Input interface {
	ObjectiveName() string
}

type PlanInput struct {
	Prompt string
	// Objective is empty when the planner should name a new objective
	Objective string
}

type ResearchInput struct {
	Plan      types.Plan
	Keywords  []string
	Objective string
}

type FormatInput struct {
	Text      string
	Objective string
}

type CodeInput struct {
	Plan          types.Plan
	UserContext   string
	SearchResults map[string]string
	Objective     string
}

type ActionInput struct {
	Conversation types.Conversation
	Objective    string
}

type AnswerInput struct {
	Conversation types.Conversation
	CodeMarkdown string
	Objective    string
}

type RunInput struct {
	Conversation types.Conversation
	CodeMarkdown string
	Platform     string
	ProjectPath  string
	Objective    string
}

type FeatureInput struct {
	Conversation types.Conversation
	CodeMarkdown string
	Platform     string
	Objective    string
}

type PatchInput struct {
	Conversation types.Conversation
	CodeMarkdown string
	Commands     []string
	Error        string
	Platform     string
	Objective    string
}

// ReportInput carries the source material for a report: the rendered
// conversation, or a single user prompt for a standalone document
type ReportInput struct {
	Entries      []string
	CodeMarkdown string
	Objective    string
}

type DecisionInput struct {
	Prompt    string
	Objective string
}

func (in PlanInput) ObjectiveName() string     { return in.Objective }
func (in ResearchInput) ObjectiveName() string { return in.Objective }
func (in FormatInput) ObjectiveName() string   { return in.Objective }
func (in CodeInput) ObjectiveName() string     { return in.Objective }
func (in ActionInput) ObjectiveName() string   { return in.Objective }
func (in AnswerInput) ObjectiveName() string   { return in.Objective }
func (in RunInput) ObjectiveName() string      { return in.Objective }
func (in FeatureInput) ObjectiveName() string  { return in.Objective }
func (in PatchInput) ObjectiveName() string    { return in.Objective }
func (in ReportInput) ObjectiveName() string   { return in.Objective }
func (in DecisionInput) ObjectiveName() string { return in.Objective }
