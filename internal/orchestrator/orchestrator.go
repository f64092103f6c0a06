// Package orchestrator drives an objective through the role pipeline: the
// primary run (plan, research, optional pause for the user, search, code),
// the reactive follow-up turn and the decision flow.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/daydemir/devloop/internal/keywords"
	"github.com/daydemir/devloop/internal/roles"
	"github.com/daydemir/devloop/internal/session"
	"github.com/daydemir/devloop/internal/types"
)

const (
	// NoUserInput stands in for the user's answer when the run never paused
	NoUserInput = "Nothing from the user."

	msgBrowsing   = "I am browsing the web to research the following queries: %s. If I need anything, I will make sure to ask you."
	msgThanks     = "Thanks! 🙌"
	msgSummary    = "In summary: %s"
	msgCodingDone = "I have completed the coding task. You can now run the project."
	msgPDFReady   = "I have generated the PDF document. You can download it from here: %s"
	msgDeployed   = "Done! I deployed your project on Netlify."
)

// DecisionPolicy controls what MakeDecision does when one item fails
type DecisionPolicy string

const (
	// PolicyStop returns on the first failing item
	PolicyStop DecisionPolicy = "stop"
	// PolicyContinue runs every item and joins the failures
	PolicyContinue DecisionPolicy = "continue"
)

// IsValid checks if a policy value is valid
func (p DecisionPolicy) IsValid() bool {
	return p == PolicyStop || p == PolicyContinue
}

// Config holds orchestrator tuning
type Config struct {
	PollInterval time.Duration
	// SuspendTimeout bounds the wait for a user reply; zero waits until the
	// context is cancelled
	SuspendTimeout    time.Duration
	SearchConcurrency int
	DecisionPolicy    DecisionPolicy
	DownloadBaseURL   string
	// Platform is handed to the run, feature and bug roles
	Platform string
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		SearchConcurrency: 4,
		DecisionPolicy:    PolicyStop,
		DownloadBaseURL:   "http://127.0.0.1:1337",
		Platform:          runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.SearchConcurrency <= 0 {
		c.SearchConcurrency = defaults.SearchConcurrency
	}
	if c.DecisionPolicy == "" {
		c.DecisionPolicy = defaults.DecisionPolicy
	}
	if c.DownloadBaseURL == "" {
		c.DownloadBaseURL = defaults.DownloadBaseURL
	}
	if c.Platform == "" {
		c.Platform = defaults.Platform
	}
}

// Roles is the full set of pipeline stages
type Roles struct {
	Planner    roles.Role[roles.PlanInput, types.Plan]
	Researcher roles.Role[roles.ResearchInput, types.ResearchResult]
	Formatter  roles.Role[roles.FormatInput, string]
	Coder      roles.Role[roles.CodeInput, []types.CodeFile]
	Action     roles.Role[roles.ActionInput, types.ActionDecision]
	Answer     roles.Role[roles.AnswerInput, string]
	Runner     roles.Role[roles.RunInput, types.RunReport]
	Feature    roles.Role[roles.FeatureInput, []types.CodeFile]
	Patcher    roles.Role[roles.PatchInput, []types.CodeFile]
	Reporter   roles.Role[roles.ReportInput, string]
	Decision   roles.Role[roles.DecisionInput, []types.DecisionItem]
}

// Searcher finds the first result URL for a query
type Searcher interface {
	FirstLink(ctx context.Context, query string) (string, error)
}

// Browser is one page-holding browsing session
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context, objective string) (string, error)
	ExtractText(ctx context.Context) (string, error)
}

// Interactor carries out a free-form browser task
type Interactor interface {
	Interact(ctx context.Context, objective, task string) (string, error)
}

// DocumentRenderer turns markdown into a PDF and returns its path
type DocumentRenderer interface {
	MarkdownToPDF(ctx context.Context, markdown, objective string) (string, error)
}

// Deployer publishes a project directory
type Deployer interface {
	Deploy(ctx context.Context, objective, projectDir string) (types.DeployResult, error)
}

// CodeWorkspace persists generated files and renders a project as markdown
type CodeWorkspace interface {
	Save(ctx context.Context, objective string, files []types.CodeFile) error
	Render(ctx context.Context, objective string) (string, error)
}

// Observer is told about stage transitions
type Observer interface {
	Stage(objective, stage string)
}

type nopObserver struct{}

func (nopObserver) Stage(string, string) {}

// Services are the external collaborators
type Services struct {
	Store    session.Store
	Keywords keywords.Extractor
	Search   Searcher
	// NewBrowser opens a fresh browser; each query and each report gets its own
	NewBrowser func() Browser
	Interactor Interactor
	Documents  DocumentRenderer
	Deployer   Deployer
	Code       CodeWorkspace
	Observer   Observer
}

// Options configures New
type Options struct {
	Config   Config
	Roles    Roles
	Services Services
}

// Orchestrator runs objectives. It owns its keyword accumulator, so two
// orchestrators never share research context.
type Orchestrator struct {
	cfg      Config
	roles    Roles
	svc      Services
	store    session.Store
	keywords *keywords.Accumulator
	observer Observer

	actions   map[types.ActionKind]actionHandler
	decisions map[types.DecisionFunction]decisionHandler
}

// New validates opts and builds an orchestrator
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	cfg.applyDefaults()
	if !cfg.DecisionPolicy.IsValid() {
		return nil, fmt.Errorf("invalid decision policy %q, must be %q or %q", cfg.DecisionPolicy, PolicyStop, PolicyContinue)
	}
	if cfg.SuspendTimeout < 0 {
		return nil, fmt.Errorf("suspend timeout cannot be negative")
	}

	if err := opts.Roles.validate(); err != nil {
		return nil, err
	}
	if err := opts.Services.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		roles:    opts.Roles,
		svc:      opts.Services,
		store:    opts.Services.Store,
		keywords: keywords.NewAccumulator(opts.Services.Keywords),
		observer: opts.Services.Observer,
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	o.actions = o.actionTable()
	for _, kind := range types.AllActionKinds() {
		if o.actions[kind] == nil {
			return nil, fmt.Errorf("dispatch table has no handler for action %q", kind)
		}
	}
	o.decisions = o.decisionTable()
	for _, fn := range types.AllDecisionFunctions() {
		if o.decisions[fn] == nil {
			return nil, fmt.Errorf("decision table has no handler for function %q", fn)
		}
	}
	return o, nil
}

func (r Roles) validate() error {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("planner", r.Planner != nil)
	check("researcher", r.Researcher != nil)
	check("formatter", r.Formatter != nil)
	check("coder", r.Coder != nil)
	check("action", r.Action != nil)
	check("answer", r.Answer != nil)
	check("runner", r.Runner != nil)
	check("feature", r.Feature != nil)
	check("patcher", r.Patcher != nil)
	check("reporter", r.Reporter != nil)
	check("decision", r.Decision != nil)
	if len(missing) > 0 {
		return fmt.Errorf("missing roles: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s Services) validate() error {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("store", s.Store != nil)
	check("keywords", s.Keywords != nil)
	check("search", s.Search != nil)
	check("browser", s.NewBrowser != nil)
	check("interactor", s.Interactor != nil)
	check("documents", s.Documents != nil)
	check("deployer", s.Deployer != nil)
	check("code", s.Code != nil)
	if len(missing) > 0 {
		return fmt.Errorf("missing services: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Config returns the effective configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Keywords returns the accumulated research keywords
func (o *Orchestrator) Keywords() []string {
	return o.keywords.Terms()
}

// Execute runs the primary pipeline for prompt. When objective is empty the
// planner names a new objective; otherwise objective must already exist.
// The objective name is returned even on failure once it is known, so the
// caller can Abandon it.
func (o *Orchestrator) Execute(ctx context.Context, prompt, objective string) (string, error) {
	if objective != "" {
		if err := o.requireObjective(ctx, objective); err != nil {
			return "", err
		}
		if err := objectiveKnown(ctx, objective); err != nil {
			return "", err
		}
		if _, err := o.store.AppendUserMessage(ctx, objective, prompt); err != nil {
			return objective, err
		}
	}

	o.observer.Stage(nameOr(objective, "new"), "planning")
	plan, err := invoke(ctx, o.roles.Planner, objective, roles.PlanInput{Prompt: prompt, Objective: objective})
	if err != nil {
		return objective, err
	}

	if objective == "" {
		objective = plan.ObjectiveName
		if err := o.store.Create(ctx, objective); err != nil {
			return "", fmt.Errorf("planner named %q: %w", objective, err)
		}
		if err := objectiveKnown(ctx, objective); err != nil {
			return "", err
		}
		if _, err := o.store.AppendUserMessage(ctx, objective, prompt); err != nil {
			return objective, err
		}
	}

	if err := o.begin(ctx, objective); err != nil {
		return objective, err
	}

	steps, err := json.MarshalIndent(plan.Steps, "", "    ")
	if err != nil {
		return objective, fmt.Errorf("encode plan steps: %w", err)
	}
	if err := o.say(ctx, objective, plan.Narration, string(steps), fmt.Sprintf(msgSummary, plan.Summary)); err != nil {
		return objective, err
	}

	o.observer.Stage(objective, "researching")
	research, err := o.research(ctx, objective, plan)
	if err != nil {
		return objective, err
	}
	if err := o.say(ctx, objective, fmt.Sprintf(msgBrowsing, strings.Join(research.Queries, ", "))); err != nil {
		return objective, err
	}

	userContext := NoUserInput
	if research.NeedsInput() {
		reply, err := o.askUser(ctx, objective, research.ClarifyingQuestion)
		if err != nil {
			return objective, err
		}
		userContext = reply
	}

	if err := o.buildProject(ctx, objective, plan, research, userContext); err != nil {
		return objective, err
	}
	if err := o.say(ctx, objective, msgCodingDone); err != nil {
		return objective, err
	}
	return objective, o.finish(ctx, objective)
}

// research merges the plan's focus into the keyword set and asks the
// researcher for queries
func (o *Orchestrator) research(ctx context.Context, objective string, plan types.Plan) (types.ResearchResult, error) {
	terms, err := o.keywords.Update(ctx, plan.Focus)
	if err != nil {
		return types.ResearchResult{}, collaboratorErr("keywords", objective, err)
	}
	return invoke(ctx, o.roles.Researcher, objective, roles.ResearchInput{
		Plan:      plan,
		Keywords:  terms,
		Objective: objective,
	})
}

// buildProject searches every query, runs the coder and saves its output
func (o *Orchestrator) buildProject(ctx context.Context, objective string, plan types.Plan, research types.ResearchResult, userContext string) error {
	o.observer.Stage(objective, "searching")
	results, err := o.searchQueries(ctx, objective, research.Queries)
	if err != nil {
		return err
	}

	o.observer.Stage(objective, "coding")
	files, err := invoke(ctx, o.roles.Coder, objective, roles.CodeInput{
		Plan:          plan,
		UserContext:   userContext,
		SearchResults: results,
		Objective:     objective,
	})
	if err != nil {
		return err
	}
	return collaboratorErr("code workspace", objective, o.svc.Code.Save(ctx, objective, files))
}

// askUser posts question, goes inactive and blocks until the user answers
func (o *Orchestrator) askUser(ctx context.Context, objective, question string) (string, error) {
	asked, err := o.store.AppendSystemMessage(ctx, objective, question)
	if err != nil {
		return "", err
	}
	if err := o.store.SetActive(ctx, objective, false); err != nil {
		return "", err
	}

	o.observer.Stage(objective, "waiting for user")
	reply, err := o.awaitUserReply(ctx, objective, asked.Seq)
	if err != nil {
		return "", err
	}

	if err := o.say(ctx, objective, msgThanks); err != nil {
		return "", err
	}
	if err := o.store.SetActive(ctx, objective, true); err != nil {
		return "", err
	}
	return reply.Body, nil
}

// Abandon marks objective inactive after a failed run. It is the
// supervisor's half of the failure contract: the orchestrator itself never
// resets flags on error.
func (o *Orchestrator) Abandon(ctx context.Context, objective string) error {
	if objective == "" {
		return nil
	}
	// Detach so a cancelled run can still be reconciled
	return o.store.SetActive(context.WithoutCancel(ctx), objective, false)
}

// DownloadURL is the link at which the interface layer serves the
// objective's PDF
func (o *Orchestrator) DownloadURL(objective string) string {
	return DownloadURL(o.cfg.DownloadBaseURL, objective)
}

// DownloadURL builds <base>/api/download-project-pdf?project_name=<objective>
// with spaces encoded as %20
func DownloadURL(base, objective string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(objective), "+", "%20")
	return strings.TrimRight(base, "/") + "/api/download-project-pdf?project_name=" + escaped
}

// begin starts a run: completed is cleared before active is raised so the
// two are never true together
func (o *Orchestrator) begin(ctx context.Context, objective string) error {
	if err := o.store.SetCompleted(ctx, objective, false); err != nil {
		return err
	}
	return o.store.SetActive(ctx, objective, true)
}

// finish ends a run: active is lowered before completed is raised
func (o *Orchestrator) finish(ctx context.Context, objective string) error {
	if err := o.store.SetActive(ctx, objective, false); err != nil {
		return err
	}
	if err := o.store.SetCompleted(ctx, objective, true); err != nil {
		return err
	}
	o.observer.Stage(objective, "completed")
	return nil
}

// say appends system messages in order
func (o *Orchestrator) say(ctx context.Context, objective string, bodies ...string) error {
	for _, body := range bodies {
		if _, err := o.store.AppendSystemMessage(ctx, objective, body); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) requireObjective(ctx context.Context, objective string) error {
	ok, err := o.store.Exists(ctx, objective)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrUnknownObjective, objective)
	}
	return nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
