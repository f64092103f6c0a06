package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/daydemir/devloop/internal/session"
)

type objectiveHookKey struct{}

// WithObjectiveHook returns a context under which Execute calls fn as soon
// as the run's objective is known (supplied, or named by the planner). An
// error from fn stops the run before it writes to the objective.
func WithObjectiveHook(ctx context.Context, fn func(objective string) error) context.Context {
	return context.WithValue(ctx, objectiveHookKey{}, fn)
}

func objectiveKnown(ctx context.Context, objective string) error {
	if fn, ok := ctx.Value(objectiveHookKey{}).(func(string) error); ok && fn != nil {
		return fn(objective)
	}
	return nil
}

// RunKind is the pipeline a background run drives
type RunKind string

const (
	RunExecute  RunKind = "execute"
	RunFollowUp RunKind = "follow-up"
	RunDecision RunKind = "decision"
)

// RunState is the lifecycle of a background run
type RunState string

const (
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

// Run describes one background run
type Run struct {
	ID         string    `json:"id"`
	Kind       RunKind   `json:"kind"`
	Objective  string    `json:"objective,omitempty"`
	Prompt     string    `json:"prompt"`
	State      RunState  `json:"state"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Engine is what the supervisor drives; *Orchestrator implements it
type Engine interface {
	Execute(ctx context.Context, prompt, objective string) (string, error)
	SubsequentExecute(ctx context.Context, objective, prompt string) error
	MakeDecision(ctx context.Context, objective, prompt string) error
	Abandon(ctx context.Context, objective string) error
}

// Supervisor runs pipelines in the background for the interface layers. A
// failed or panicking run is abandoned so its objective is left inactive.
type Supervisor struct {
	engine Engine
	store  session.Store
	base   context.Context

	// OnFinish, when set, is called after every run ends
	OnFinish func(Run)

	mu    sync.Mutex
	runs  map[string]*Run
	order []string
	wg    sync.WaitGroup
}

// NewSupervisor creates a supervisor whose runs live as long as ctx
func NewSupervisor(ctx context.Context, engine Engine, store session.Store) *Supervisor {
	return &Supervisor{
		engine: engine,
		store:  store,
		base:   ctx,
		runs:   make(map[string]*Run),
	}
}

// StartExecute runs the primary pipeline. It fails with ErrObjectiveBusy
// when objective is given and already has a run in flight.
func (s *Supervisor) StartExecute(prompt, objective string) (Run, error) {
	return s.start(RunExecute, objective, prompt, func(ctx context.Context) (string, error) {
		return s.engine.Execute(ctx, prompt, objective)
	})
}

// StartFollowUp runs the reactive pipeline; prompt must already be in the log
func (s *Supervisor) StartFollowUp(objective, prompt string) (Run, error) {
	return s.start(RunFollowUp, objective, prompt, func(ctx context.Context) (string, error) {
		return objective, s.engine.SubsequentExecute(ctx, objective, prompt)
	})
}

// StartDecision runs the decision flow; prompt must already be in the log
func (s *Supervisor) StartDecision(objective, prompt string) (Run, error) {
	return s.start(RunDecision, objective, prompt, func(ctx context.Context) (string, error) {
		return objective, s.engine.MakeDecision(ctx, objective, prompt)
	})
}

// Decide records text on objective and starts a decision run for it. The
// objective is claimed before the message is written, so a busy objective
// is refused without touching its log.
func (s *Supervisor) Decide(ctx context.Context, objective, text string) (Run, error) {
	run, err := s.reserve(RunDecision, objective, text)
	if err != nil {
		return Run{}, err
	}
	if _, err := s.store.AppendUserMessage(ctx, objective, text); err != nil {
		s.finish(run.ID, objective, err)
		return Run{}, err
	}
	return s.launch(run, func(ctx context.Context) (string, error) {
		return objective, s.engine.MakeDecision(ctx, objective, text)
	}), nil
}

// Deliver records a user message on an existing objective. When a run is in
// flight for it the message is left for that run (typically a run waiting
// on a clarifying question); otherwise a follow-up run is started.
func (s *Supervisor) Deliver(ctx context.Context, objective, text string) (Run, bool, error) {
	ok, err := s.store.Exists(ctx, objective)
	if err != nil {
		return Run{}, false, err
	}
	if !ok {
		return Run{}, false, fmt.Errorf("%w: %s", session.ErrUnknownObjective, objective)
	}
	if _, err := s.store.AppendUserMessage(ctx, objective, text); err != nil {
		return Run{}, false, err
	}
	run, err := s.StartFollowUp(objective, text)
	if errors.Is(err, ErrObjectiveBusy) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// Busy reports whether a run is in flight for objective
func (s *Supervisor) Busy(objective string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked(objective, "")
}

func (s *Supervisor) busyLocked(objective, except string) bool {
	for id, r := range s.runs {
		if id != except && r.State == RunRunning && r.Objective == objective {
			return true
		}
	}
	return false
}

// Runs returns every run, oldest first
func (s *Supervisor) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.runs[id])
	}
	return out
}

// Get returns one run
func (s *Supervisor) Get(id string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	return *r, true
}

// Wait blocks until every started run has finished
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) start(kind RunKind, objective, prompt string, fn func(context.Context) (string, error)) (Run, error) {
	run, err := s.reserve(kind, objective, prompt)
	if err != nil {
		return Run{}, err
	}
	return s.launch(run, fn), nil
}

// reserve registers a running run, claiming objective when it is known
func (s *Supervisor) reserve(kind RunKind, objective, prompt string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Objective: objective,
		Prompt:    prompt,
		State:     RunRunning,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if objective != "" && s.busyLocked(objective, "") {
		return nil, fmt.Errorf("%w: %s", ErrObjectiveBusy, objective)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return run, nil
}

func (s *Supervisor) launch(run *Run, fn func(context.Context) (string, error)) Run {
	s.mu.Lock()
	started := *run
	s.mu.Unlock()

	ctx := WithObjectiveHook(s.base, func(name string) error { return s.claim(run.ID, name) })

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var name string
		var err error
		var pc panics.Catcher
		pc.Try(func() { name, err = fn(ctx) })
		if recovered := pc.Recovered(); recovered != nil {
			err = recovered.AsError()
		}

		// A refused claim never wrote to the objective; it belongs to
		// another run
		if errors.Is(err, ErrObjectiveBusy) {
			name = ""
		} else if name == "" {
			name = s.objectiveOf(run.ID)
		}
		if err != nil && name != "" {
			if abandonErr := s.engine.Abandon(ctx, name); abandonErr != nil {
				err = errors.Join(err, fmt.Errorf("abandon: %w", abandonErr))
			}
		}
		s.finish(run.ID, name, err)
	}()

	return started
}

// claim attaches objective to run id unless another run holds it
func (s *Supervisor) claim(id, objective string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked(objective, id) {
		return fmt.Errorf("%w: %s", ErrObjectiveBusy, objective)
	}
	s.runs[id].Objective = objective
	return nil
}

func (s *Supervisor) objectiveOf(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id].Objective
}

func (s *Supervisor) finish(id, objective string, err error) {
	s.mu.Lock()
	r := s.runs[id]
	if objective != "" {
		r.Objective = objective
	}
	r.FinishedAt = time.Now()
	if err != nil {
		r.State = RunFailed
		r.Error = err.Error()
	} else {
		r.State = RunSucceeded
	}
	done := *r
	onFinish := s.OnFinish
	s.mu.Unlock()

	if onFinish != nil {
		onFinish(done)
	}
}
