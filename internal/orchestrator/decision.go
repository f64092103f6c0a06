package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/daydemir/devloop/internal/roles"
	"github.com/daydemir/devloop/internal/types"
)

type decisionHandler func(ctx context.Context, objective string, item types.DecisionItem) error

func (o *Orchestrator) decisionTable() map[types.DecisionFunction]decisionHandler {
	return map[types.DecisionFunction]decisionHandler{
		types.FunctionGeneratePDF:        o.decideDocument,
		types.FunctionBrowserInteraction: o.decideBrowse,
		types.FunctionCodingProject:      o.decideCoding,
	}
}

// MakeDecision asks the decision role for a list of steps and runs them in
// order, posting each step's reply before it runs. Messages from earlier
// steps stay in the log when a later step fails. With PolicyStop the first
// failure is returned; with PolicyContinue all failures are joined. The
// objective is active while the steps run and completed once all succeed.
func (o *Orchestrator) MakeDecision(ctx context.Context, objective, prompt string) error {
	if err := o.requireObjective(ctx, objective); err != nil {
		return err
	}
	if err := o.begin(ctx, objective); err != nil {
		return err
	}

	o.observer.Stage(objective, "deciding")
	items, err := invoke(ctx, o.roles.Decision, objective, roles.DecisionInput{Prompt: prompt, Objective: objective})
	if err != nil {
		return err
	}

	var errs []error
	for i, item := range items {
		if err := o.say(ctx, objective, item.Reply); err != nil {
			return err
		}

		handler := o.decisions[item.Function]
		if handler == nil {
			err = fmt.Errorf("%w: unknown function %q", roles.ErrMalformedResponse, item.Function)
		} else {
			o.observer.Stage(objective, item.Function.String())
			err = handler(ctx, objective, item)
		}
		if err == nil {
			continue
		}

		err = fmt.Errorf("decision %d (%s): %w", i+1, item.Function, err)
		if o.cfg.DecisionPolicy == PolicyStop {
			return err
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return o.finish(ctx, objective)
}

// decideDocument writes a standalone report from the user's prompt
func (o *Orchestrator) decideDocument(ctx context.Context, objective string, item types.DecisionItem) error {
	markdown, err := invoke(ctx, o.roles.Reporter, objective, roles.ReportInput{
		Entries:   []string{item.UserPrompt()},
		Objective: objective,
	})
	if err != nil {
		return err
	}
	return o.publishReport(ctx, objective, markdown)
}

func (o *Orchestrator) decideBrowse(ctx context.Context, objective string, item types.DecisionItem) error {
	summary, err := o.svc.Interactor.Interact(ctx, objective, item.UserPrompt())
	if err != nil {
		return collaboratorErr("browser interaction", objective, err)
	}
	if summary == "" {
		return nil
	}
	return o.say(ctx, objective, summary)
}

// decideCoding runs plan, research, search and code without pausing for the
// user. The keyword set is read but not extended.
func (o *Orchestrator) decideCoding(ctx context.Context, objective string, item types.DecisionItem) error {
	plan, err := invoke(ctx, o.roles.Planner, objective, roles.PlanInput{Prompt: item.UserPrompt(), Objective: objective})
	if err != nil {
		return err
	}
	research, err := invoke(ctx, o.roles.Researcher, objective, roles.ResearchInput{
		Plan:      plan,
		Keywords:  o.keywords.Terms(),
		Objective: objective,
	})
	if err != nil {
		return err
	}
	return o.buildProject(ctx, objective, plan, research, NoUserInput)
}
