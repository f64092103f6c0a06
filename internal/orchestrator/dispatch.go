package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daydemir/devloop/internal/roles"
	"github.com/daydemir/devloop/internal/types"
)

// turn is the context shared by every action handler in one follow-up
type turn struct {
	objective    string
	prompt       string
	conversation types.Conversation
	code         string
	platform     string
}

type actionHandler func(ctx context.Context, t *turn) error

// actionTable maps every ActionKind to its handler. New refuses to build an
// orchestrator whose table misses a kind.
func (o *Orchestrator) actionTable() map[types.ActionKind]actionHandler {
	return map[types.ActionKind]actionHandler{
		types.ActionAnswer:  o.handleAnswer,
		types.ActionRun:     o.handleRun,
		types.ActionDeploy:  o.handleDeploy,
		types.ActionFeature: o.handleFeature,
		types.ActionBug:     o.handleBug,
		types.ActionReport:  o.handleReport,
	}
}

// SubsequentExecute reacts to a new user message on an existing objective.
// The caller has already appended prompt to the log.
func (o *Orchestrator) SubsequentExecute(ctx context.Context, objective, prompt string) error {
	if err := o.requireObjective(ctx, objective); err != nil {
		return err
	}
	if err := o.begin(ctx, objective); err != nil {
		return err
	}

	conversation, err := o.store.Conversation(ctx, objective)
	if err != nil {
		return err
	}
	code, err := o.svc.Code.Render(ctx, objective)
	if err != nil {
		return collaboratorErr("code workspace", objective, err)
	}

	t := &turn{
		objective:    objective,
		prompt:       prompt,
		conversation: conversation,
		code:         code,
		platform:     o.cfg.Platform,
	}

	o.observer.Stage(objective, "choosing action")
	decision, err := invoke(ctx, o.roles.Action, objective, roles.ActionInput{Conversation: conversation, Objective: objective})
	if err != nil {
		return err
	}
	if err := o.say(ctx, objective, decision.Narration); err != nil {
		return err
	}

	handler := o.actions[decision.Kind]
	if handler == nil {
		return &roles.RoleError{
			Role:      o.roles.Action.Name(),
			Objective: objective,
			Err:       fmt.Errorf("%w: unknown action %q", roles.ErrMalformedResponse, decision.Kind),
		}
	}

	o.observer.Stage(objective, decision.Kind.String())
	if err := handler(ctx, t); err != nil {
		return err
	}
	return o.finish(ctx, objective)
}

func (o *Orchestrator) handleAnswer(ctx context.Context, t *turn) error {
	reply, err := invoke(ctx, o.roles.Answer, t.objective, roles.AnswerInput{
		Conversation: t.conversation,
		CodeMarkdown: t.code,
		Objective:    t.objective,
	})
	if err != nil {
		return err
	}
	return o.say(ctx, t.objective, reply)
}

// handleRun executes the project in place; the runner records its own output
func (o *Orchestrator) handleRun(ctx context.Context, t *turn) error {
	_, err := invoke(ctx, o.roles.Runner, t.objective, roles.RunInput{
		Conversation: t.conversation,
		CodeMarkdown: t.code,
		Platform:     t.platform,
		ProjectPath:  o.store.ProjectPath(t.objective),
		Objective:    t.objective,
	})
	return err
}

type deployMessage struct {
	Message   string `json:"message"`
	DeployURL string `json:"deploy_url"`
}

func (o *Orchestrator) handleDeploy(ctx context.Context, t *turn) error {
	result, err := o.svc.Deployer.Deploy(ctx, t.objective, o.store.ProjectPath(t.objective))
	if err != nil {
		return collaboratorErr("deployer", t.objective, err)
	}
	body, err := json.MarshalIndent(deployMessage{Message: msgDeployed, DeployURL: result.DeployURL}, "", "    ")
	if err != nil {
		return err
	}
	return o.say(ctx, t.objective, string(body))
}

func (o *Orchestrator) handleFeature(ctx context.Context, t *turn) error {
	files, err := invoke(ctx, o.roles.Feature, t.objective, roles.FeatureInput{
		Conversation: t.conversation,
		CodeMarkdown: t.code,
		Platform:     t.platform,
		Objective:    t.objective,
	})
	if err != nil {
		return err
	}
	return collaboratorErr("code workspace", t.objective, o.svc.Code.Save(ctx, t.objective, files))
}

// handleBug treats the triggering prompt as the error report
func (o *Orchestrator) handleBug(ctx context.Context, t *turn) error {
	files, err := invoke(ctx, o.roles.Patcher, t.objective, roles.PatchInput{
		Conversation: t.conversation,
		CodeMarkdown: t.code,
		Commands:     nil,
		Error:        t.prompt,
		Platform:     t.platform,
		Objective:    t.objective,
	})
	if err != nil {
		return err
	}
	return collaboratorErr("code workspace", t.objective, o.svc.Code.Save(ctx, t.objective, files))
}

func (o *Orchestrator) handleReport(ctx context.Context, t *turn) error {
	markdown, err := invoke(ctx, o.roles.Reporter, t.objective, roles.ReportInput{
		Entries:      t.conversation.Lines(),
		CodeMarkdown: t.code,
		Objective:    t.objective,
	})
	if err != nil {
		return err
	}
	return o.publishReport(ctx, t.objective, markdown)
}

// publishReport renders markdown to PDF, visits its download link and tells
// the user where to find it
func (o *Orchestrator) publishReport(ctx context.Context, objective, markdown string) error {
	if _, err := o.svc.Documents.MarkdownToPDF(ctx, markdown, objective); err != nil {
		return collaboratorErr("document renderer", objective, err)
	}

	link := o.DownloadURL(objective)
	b := o.svc.NewBrowser()
	if err := b.Navigate(ctx, link); err != nil {
		return collaboratorErr("browser", objective, err)
	}
	if _, err := b.Screenshot(ctx, objective); err != nil {
		return collaboratorErr("browser", objective, err)
	}
	return o.say(ctx, objective, fmt.Sprintf(msgPDFReady, link))
}
