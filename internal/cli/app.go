package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/daydemir/devloop/internal/browser"
	"github.com/daydemir/devloop/internal/config"
	"github.com/daydemir/devloop/internal/deploy"
	"github.com/daydemir/devloop/internal/display"
	"github.com/daydemir/devloop/internal/document"
	"github.com/daydemir/devloop/internal/keywords"
	"github.com/daydemir/devloop/internal/llm"
	"github.com/daydemir/devloop/internal/logs"
	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/project"
	"github.com/daydemir/devloop/internal/roles"
	"github.com/daydemir/devloop/internal/search"
	"github.com/daydemir/devloop/internal/session"
	"github.com/daydemir/devloop/internal/workspace"
)

// app is everything one command invocation needs, built from the workspace
type app struct {
	wsDir     string
	cfg       *config.Config
	store     session.Store
	documents *document.Pandoc
	orch      *orchestrator.Orchestrator
	sup       *orchestrator.Supervisor
	display   *display.Display

	closeStore func() error
}

// openStore loads config and opens the session store only; used by commands
// that never run the pipeline
func openStore() (*app, error) {
	wsDir, err := workspace.Find()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(wsDir)
	if err != nil {
		return nil, err
	}

	a := &app{wsDir: wsDir, cfg: cfg, closeStore: func() error { return nil }}
	projects := workspace.ProjectsPath(wsDir)

	switch cfg.Session.Backend {
	case "memory":
		a.store = session.NewMemoryStore(projects)
	default:
		store, err := session.NewSQLiteStore(workspace.Path(wsDir), projects)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.closeStore = store.Close
	}
	return a, nil
}

// openApp wires the full pipeline. Progress output goes to out.
func openApp(ctx context.Context, out io.Writer) (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}
	cfg := a.cfg
	a.display = display.NewWithOptions(out, noColor)

	backend, err := llm.New(cfg.LLM.Backend, cfg.LLMBinary(), cfg.KiloCode.APIKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	model := cfg.LLM.Model
	if flagModel != "" {
		model = flagModel
	}

	promptsDir := filepath.Join(workspace.Path(a.wsDir), "prompts")
	recorder := logs.Reporting(logs.NewTranscripts(workspace.LogsPath(a.wsDir)), func(err error) {
		a.display.Warning(err.Error())
	})

	completer := llm.NewCompleter(backend, model)
	completer.Progress = a.display
	engine := &roles.Engine{
		Completer:  completer,
		PromptsDir: promptsDir,
		Recorder:   recorder,
	}

	a.documents = document.NewPandoc(cfg.Document.PandocBinary, workspace.DocumentsPath(a.wsDir))
	a.documents.PDFEngine = cfg.Document.PDFEngine

	screenshots := workspace.ScreenshotsPath(a.wsDir)

	orch, err := orchestrator.New(orchestrator.Options{
		Config: cfg.OrchestratorConfig(),
		Roles: orchestrator.Roles{
			Planner:    roles.NewPlanner(engine),
			Researcher: roles.NewResearcher(engine),
			Formatter:  roles.NewFormatter(engine),
			Coder:      roles.NewCoder(engine),
			Action:     roles.NewAction(engine),
			Answer:     roles.NewAnswer(engine),
			Runner:     roles.NewRunner(engine, roles.ShellExecutor{}, a.store),
			Feature:    roles.NewFeature(engine),
			Patcher:    roles.NewPatcher(engine),
			Reporter:   roles.NewReporter(engine),
			Decision:   roles.NewDecision(engine),
		},
		Services: orchestrator.Services{
			Store:    a.store,
			Keywords: keywords.NewStopwordExtractor(),
			Search:   search.NewDuckDuckGo(cfg.Search.Endpoint),
			NewBrowser: func() orchestrator.Browser {
				return browser.NewHTTPBrowser(screenshots)
			},
			Interactor: &browser.LLMInteractor{
				Backend:    backend,
				Model:      model,
				PromptsDir: promptsDir,
				Recorder:   recorder,
				Progress:   a.display,
			},
			Documents: a.documents,
			Deployer:  deploy.NewNetlify(cfg.Netlify.APIURL, cfg.Netlify.Token),
			Code:      project.NewWorkspace(workspace.ProjectsPath(a.wsDir)),
			Observer:  a.display,
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("cannot build orchestrator: %w", err)
	}
	a.orch = orch
	a.sup = orchestrator.NewSupervisor(ctx, orch, a.store)
	return a, nil
}

func (a *app) Close() error {
	return a.closeStore()
}
