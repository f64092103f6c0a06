package orchestrator

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/daydemir/devloop/internal/keywords"
	"github.com/daydemir/devloop/internal/project"
	"github.com/daydemir/devloop/internal/roles"
	"github.com/daydemir/devloop/internal/session"
	"github.com/daydemir/devloop/internal/types"
)

// flagRecorder wraps a MemoryStore and records every flag transition
type flagRecorder struct {
	session.Store
	mem *session.MemoryStore

	mu         sync.Mutex
	wasActive  map[string]bool
	violations []string
}

func (r *flagRecorder) SetActive(ctx context.Context, objective string, active bool) error {
	if err := r.Store.SetActive(ctx, objective, active); err != nil {
		return err
	}
	r.check(ctx, objective)
	return nil
}

func (r *flagRecorder) SetCompleted(ctx context.Context, objective string, completed bool) error {
	if err := r.Store.SetCompleted(ctx, objective, completed); err != nil {
		return err
	}
	r.check(ctx, objective)
	return nil
}

func (r *flagRecorder) Changes(objective string) <-chan struct{} {
	return r.mem.Changes(objective)
}

func (r *flagRecorder) check(ctx context.Context, objective string) {
	snap, err := r.Store.Snapshot(ctx, objective)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Active {
		r.wasActive[objective] = true
	}
	if snap.Active && snap.Completed {
		r.violations = append(r.violations, objective)
	}
}

// pollOnly hides the Notifier so waiters fall back to ticking
type pollOnly struct {
	session.Store
}

type harness struct {
	t     *testing.T
	root  string
	mem   *session.MemoryStore
	store *flagRecorder
	orch  *Orchestrator

	mu        sync.Mutex
	calls     map[string]int
	queries   []string
	navigated []string

	plan       types.Plan
	planErr    error
	research   types.ResearchResult
	coderErr   error
	searchErr  error
	action     types.ActionDecision
	items      []types.DecisionItem
	interactFn func(task string) (string, error)

	planIn     []roles.PlanInput
	researchIn []roles.ResearchInput
	codeIn     roles.CodeInput
	runIn      roles.RunInput
	featureIn  roles.FeatureInput
	patchIn    roles.PatchInput
	reportIn   []roles.ReportInput
	rendered   []string
	deployDir  string
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()

	root := t.TempDir()
	mem := session.NewMemoryStore(root)
	h := &harness{
		t:     t,
		root:  root,
		mem:   mem,
		store: &flagRecorder{Store: mem, mem: mem, wasActive: map[string]bool{}},
		calls: map[string]int{},
		plan: types.Plan{
			ObjectiveName: "todo-app",
			Narration:     "Sure, I will build a todo app.",
			Focus:         "React todo app with local storage",
			Steps:         []string{"Scaffold the app", "Add the todo list"},
			Summary:       "A small React todo app.",
		},
		research: types.ResearchResult{Queries: []string{"React useState", "localStorage API"}},
	}

	cfg := Config{PollInterval: 5 * time.Millisecond, Platform: "linux/amd64"}
	if configure != nil {
		configure(&cfg)
	}

	orch, err := New(Options{Config: cfg, Roles: h.roles(), Services: h.services(h.store)})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) record(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[name]++
}

func (h *harness) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[name]
}

func fakeRole[In, Out any](h *harness, name string, fn func(in In) (Out, error)) roles.Role[In, Out] {
	return roles.Func[In, Out]{RoleName: name, Fn: func(ctx context.Context, in In) (Out, error) {
		h.record(name)
		return fn(in)
	}}
}

func (h *harness) roles() Roles {
	return Roles{
		Planner: fakeRole(h, "planner", func(in roles.PlanInput) (types.Plan, error) {
			h.planIn = append(h.planIn, in)
			return h.plan, h.planErr
		}),
		Researcher: fakeRole(h, "researcher", func(in roles.ResearchInput) (types.ResearchResult, error) {
			h.researchIn = append(h.researchIn, in)
			return h.research, nil
		}),
		Formatter: fakeRole(h, "formatter", func(in roles.FormatInput) (string, error) {
			return "formatted: " + in.Text, nil
		}),
		Coder: fakeRole(h, "coder", func(in roles.CodeInput) ([]types.CodeFile, error) {
			h.codeIn = in
			if h.coderErr != nil {
				return nil, h.coderErr
			}
			return []types.CodeFile{{Path: "index.html", Content: "<h1>todo</h1>"}}, nil
		}),
		Action: fakeRole(h, "action", func(in roles.ActionInput) (types.ActionDecision, error) {
			return h.action, nil
		}),
		Answer: fakeRole(h, "answer", func(in roles.AnswerInput) (string, error) {
			return "It uses React.", nil
		}),
		Runner: fakeRole(h, "runner", func(in roles.RunInput) (types.RunReport, error) {
			h.runIn = in
			return types.RunReport{Commands: []string{"npm start"}}, nil
		}),
		Feature: fakeRole(h, "feature", func(in roles.FeatureInput) ([]types.CodeFile, error) {
			h.featureIn = in
			return []types.CodeFile{{Path: "feature.js", Content: "export {}"}}, nil
		}),
		Patcher: fakeRole(h, "patcher", func(in roles.PatchInput) ([]types.CodeFile, error) {
			h.patchIn = in
			return []types.CodeFile{{Path: "fix.js", Content: "export {}"}}, nil
		}),
		Reporter: fakeRole(h, "reporter", func(in roles.ReportInput) (string, error) {
			h.reportIn = append(h.reportIn, in)
			return "# Report", nil
		}),
		Decision: fakeRole(h, "decision", func(in roles.DecisionInput) ([]types.DecisionItem, error) {
			return h.items, nil
		}),
	}
}

func (h *harness) services(store session.Store) Services {
	return Services{
		Store:      store,
		Keywords:   keywords.NewStopwordExtractor(),
		Search:     fakeSearch{h},
		NewBrowser: func() Browser { return &fakeBrowser{h: h} },
		Interactor: fakeInteractor{h},
		Documents:  fakeDocuments{h},
		Deployer:   fakeDeployer{h},
		Code:       project.NewWorkspace(h.root),
	}
}

type fakeSearch struct{ h *harness }

func (s fakeSearch) FirstLink(ctx context.Context, query string) (string, error) {
	s.h.record("search")
	s.h.mu.Lock()
	s.h.queries = append(s.h.queries, query)
	s.h.mu.Unlock()
	if s.h.searchErr != nil {
		return "", s.h.searchErr
	}
	return "https://example.com/" + url.PathEscape(query), nil
}

type fakeBrowser struct {
	h   *harness
	url string
}

func (b *fakeBrowser) Navigate(ctx context.Context, link string) error {
	b.h.record("navigate")
	b.h.mu.Lock()
	b.h.navigated = append(b.h.navigated, link)
	b.h.mu.Unlock()
	b.url = link
	return nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context, objective string) (string, error) {
	b.h.record("screenshot")
	if b.url == "" {
		return "", errors.New("no page")
	}
	return "/snapshots/" + objective + ".html", nil
}

func (b *fakeBrowser) ExtractText(ctx context.Context) (string, error) {
	b.h.record("extract")
	return "page " + b.url, nil
}

type fakeInteractor struct{ h *harness }

func (i fakeInteractor) Interact(ctx context.Context, objective, task string) (string, error) {
	i.h.record("interact")
	if i.h.interactFn != nil {
		return i.h.interactFn(task)
	}
	return "", nil
}

type fakeDocuments struct{ h *harness }

func (d fakeDocuments) MarkdownToPDF(ctx context.Context, markdown, objective string) (string, error) {
	d.h.record("pdf")
	d.h.rendered = append(d.h.rendered, markdown)
	return "/docs/" + objective + ".pdf", nil
}

type fakeDeployer struct{ h *harness }

func (d fakeDeployer) Deploy(ctx context.Context, objective, projectDir string) (types.DeployResult, error) {
	d.h.record("deployer")
	d.h.deployDir = projectDir
	return types.DeployResult{SiteID: "site-1", DeployID: "dep-1", DeployURL: "https://todo.netlify.app"}, nil
}

// seed creates an objective holding one user message
func (h *harness) seed(objective, prompt string) {
	h.t.Helper()
	ctx := context.Background()
	if err := h.mem.Create(ctx, objective); err != nil {
		h.t.Fatal(err)
	}
	if _, err := h.mem.AppendUserMessage(ctx, objective, prompt); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) conversation(objective string) types.Conversation {
	h.t.Helper()
	conv, err := h.mem.Conversation(context.Background(), objective)
	if err != nil {
		h.t.Fatal(err)
	}
	return conv
}

func (h *harness) snapshot(objective string) session.Snapshot {
	h.t.Helper()
	snap, err := h.mem.Snapshot(context.Background(), objective)
	if err != nil {
		h.t.Fatal(err)
	}
	return snap
}

// assertFinished checks the end-of-run invariant
func (h *harness) assertFinished(objective string) {
	h.t.Helper()
	snap := h.snapshot(objective)
	if snap.Active || !snap.Completed {
		h.t.Errorf("final flags active=%v completed=%v, want false/true", snap.Active, snap.Completed)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if !h.store.wasActive[objective] {
		h.t.Error("objective was never active during the run")
	}
	if len(h.store.violations) > 0 {
		h.t.Errorf("active and completed were true together for %v", h.store.violations)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
