package types

import (
	"fmt"
	"strings"
	"time"
)

// Message is one entry in an objective's append-only log
type Message struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"` // Insertion order within the store
	Origin    Origin    `json:"origin"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// FromUser reports whether the message was written by a human
func (m Message) FromUser() bool {
	return m.Origin == OriginUser
}

// Conversation is the ordered message log of one objective
type Conversation []Message

// Lines renders each message as "origin: body"
func (c Conversation) Lines() []string {
	lines := make([]string, 0, len(c))
	for _, m := range c {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Origin, m.Body))
	}
	return lines
}

// String joins the rendered lines with newlines
func (c Conversation) String() string {
	return strings.Join(c.Lines(), "\n")
}

// Plan is the structured output of the planner role
type Plan struct {
	ObjectiveName string   `json:"project"`
	Narration     string   `json:"reply"`
	Focus         string   `json:"focus"`
	Steps         []string `json:"plans"`
	Summary       string   `json:"summary"`

	// Raw is the unparsed planner response, handed to later roles verbatim
	Raw string `json:"-"`
}

// Validate ensures the plan can drive a run
func (p *Plan) Validate() error {
	errs := &ValidationErrors{}
	if strings.TrimSpace(p.ObjectiveName) == "" {
		errs.Add("plan.project", "non-empty string", p.ObjectiveName, "objective name is required")
	}
	if len(p.Steps) == 0 {
		errs.Add("plan.plans", "at least one step", p.Steps, "plan must contain steps")
	}
	for i, step := range p.Steps {
		if strings.TrimSpace(step) == "" {
			errs.Add(fmt.Sprintf("plan.plans[%d]", i), "non-empty string", step, "steps cannot be blank")
		}
	}
	return errs.OrNil()
}

// ResearchResult is the structured output of the researcher role
type ResearchResult struct {
	Queries            []string `json:"queries"`
	ClarifyingQuestion string   `json:"ask_user"`
}

// NeedsInput reports whether the run must suspend for a human answer
func (r ResearchResult) NeedsInput() bool {
	return strings.TrimSpace(r.ClarifyingQuestion) != ""
}

// ActionDecision is the output of the action role
type ActionDecision struct {
	Narration string     `json:"response"`
	Kind      ActionKind `json:"action"`
}

// DecisionItem is one step returned by the decision role
type DecisionItem struct {
	Function DecisionFunction  `json:"function"`
	Args     map[string]string `json:"args"`
	Reply    string            `json:"reply"`
}

// UserPrompt returns the user_prompt argument
func (d DecisionItem) UserPrompt() string {
	return d.Args["user_prompt"]
}

// Validate ensures the item names a known function
func (d *DecisionItem) Validate() error {
	if !d.Function.IsValid() {
		return fmt.Errorf("decision.function: invalid value %q, must be one of: %v", d.Function, AllDecisionFunctions())
	}
	return nil
}

// CodeFile is one generated artifact to persist into a project
type CodeFile struct {
	Path    string `json:"file"`
	Content string `json:"code"`
}

// RunReport describes what the runner role executed
type RunReport struct {
	Commands []string `json:"commands"`
	Output   string   `json:"-"`
}

// DeployResult is returned by the deployment collaborator
type DeployResult struct {
	SiteID    string `json:"site_id"`
	DeployID  string `json:"id"`
	DeployURL string `json:"deploy_url"`
}
