package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/session"
)

// ExecuteTool handles devloop_execute.
type ExecuteTool struct {
	sup *orchestrator.Supervisor
}

func NewExecuteTool(sup *orchestrator.Supervisor) *ExecuteTool {
	return &ExecuteTool{sup: sup}
}

func (t *ExecuteTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_execute",
		mcp.WithDescription(
			"Start a new devloop run for a natural-language objective. The run plans, researches and writes code in the "+
				"background; this call returns immediately. Poll devloop_status and devloop_messages to follow it, and answer "+
				"clarifying questions with devloop_reply.",
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("What to build, e.g. 'Build a todo app with React'"),
		),
		mcp.WithString("objective",
			mcp.Description("Existing objective to continue. Leave empty to let the planner name a new one."),
		),
	)
}

func (t *ExecuteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt := strings.TrimSpace(req.GetString("prompt", ""))
	if prompt == "" {
		return mcp.NewToolResultError("'prompt' is required"), nil
	}
	objective := strings.TrimSpace(req.GetString("objective", ""))

	run, err := t.sup.StartExecute(prompt, objective)
	if err != nil {
		return storeError(err), nil
	}

	response := fmt.Sprintf("Run %s started.", run.ID)
	if objective != "" {
		response += fmt.Sprintf("\nObjective: %s", objective)
	} else {
		response += "\nThe planner will name the objective; check devloop_status for it."
	}
	return mcp.NewToolResultText(response), nil
}

// ReplyTool handles devloop_reply.
type ReplyTool struct {
	store session.Store
}

func NewReplyTool(store session.Store) *ReplyTool {
	return &ReplyTool{store: store}
}

func (t *ReplyTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_reply",
		mcp.WithDescription(
			"Answer a clarifying question from a paused run. The message is appended to the objective's log; the waiting run "+
				"resumes when it sees a user message at the end of the log.",
		),
		mcp.WithString("objective", mcp.Required(), mcp.Description("Objective that asked the question")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Your answer")),
	)
}

func (t *ReplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objective, message, errResult := objectiveAndMessage(req)
	if errResult != nil {
		return errResult, nil
	}

	msg, err := t.store.AppendUserMessage(ctx, objective, message)
	if err != nil {
		return storeError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reply recorded on %q (message %d).", objective, msg.Seq)), nil
}

// ChatTool handles devloop_chat.
type ChatTool struct {
	sup *orchestrator.Supervisor
}

func NewChatTool(sup *orchestrator.Supervisor) *ChatTool {
	return &ChatTool{sup: sup}
}

func (t *ChatTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_chat",
		mcp.WithDescription(
			"Send a follow-up message on an existing objective. devloop picks an action (answer, run, deploy, feature, bug, "+
				"report) and carries it out in the background. If a run is already in flight the message is left for it.",
		),
		mcp.WithString("objective", mcp.Required(), mcp.Description("Objective to talk to")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Follow-up request or question")),
	)
}

func (t *ChatTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objective, message, errResult := objectiveAndMessage(req)
	if errResult != nil {
		return errResult, nil
	}

	run, started, err := t.sup.Deliver(ctx, objective, message)
	if err != nil {
		return storeError(err), nil
	}
	if !started {
		return mcp.NewToolResultText(fmt.Sprintf("A run is already in flight for %q; your message was queued for it.", objective)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Run %s started for %q.", run.ID, objective)), nil
}

// DecideTool handles devloop_decide.
type DecideTool struct {
	sup   *orchestrator.Supervisor
	store session.Store
}

func NewDecideTool(sup *orchestrator.Supervisor, store session.Store) *DecideTool {
	return &DecideTool{sup: sup, store: store}
}

func (t *DecideTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_decide",
		mcp.WithDescription(
			"Let devloop decide how to handle a request: write a PDF document, drive a browser, or start a coding project. "+
				"Creates the objective when it does not exist yet. Runs in the background.",
		),
		mcp.WithString("objective", mcp.Required(), mcp.Description("Objective name")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The request")),
	)
}

func (t *DecideTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objective, message, errResult := objectiveAndMessage(req)
	if errResult != nil {
		return errResult, nil
	}

	if err := t.store.Create(ctx, objective); err != nil && !errors.Is(err, session.ErrObjectiveExists) {
		return storeError(err), nil
	}
	run, err := t.sup.Decide(ctx, objective, message)
	if err != nil {
		return storeError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Decision run %s started for %q.", run.ID, objective)), nil
}

// StatusTool handles devloop_status.
type StatusTool struct {
	sup   *orchestrator.Supervisor
	store session.Store
}

func NewStatusTool(sup *orchestrator.Supervisor, store session.Store) *StatusTool {
	return &StatusTool{sup: sup, store: store}
}

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_status",
		mcp.WithDescription("Show the active/completed flags of one objective, or of every objective plus the runs started by this server."),
		mcp.WithString("objective", mcp.Description("Objective to inspect (default: all)")),
	)
}

type statusReport struct {
	Objectives []session.Snapshot  `json:"objectives"`
	Runs       []orchestrator.Run `json:"runs,omitempty"`
}

func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objective := strings.TrimSpace(req.GetString("objective", ""))

	var report statusReport
	if objective != "" {
		snap, err := t.store.Snapshot(ctx, objective)
		if err != nil {
			return storeError(err), nil
		}
		report.Objectives = []session.Snapshot{snap}
		for _, r := range t.sup.Runs() {
			if r.Objective == objective {
				report.Runs = append(report.Runs, r)
			}
		}
	} else {
		names, err := t.store.List(ctx)
		if err != nil {
			return storeError(err), nil
		}
		for _, name := range names {
			snap, err := t.store.Snapshot(ctx, name)
			if err != nil {
				return storeError(err), nil
			}
			report.Objectives = append(report.Objectives, snap)
		}
		report.Runs = t.sup.Runs()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// MessagesTool handles devloop_messages.
type MessagesTool struct {
	store session.Store
}

func NewMessagesTool(store session.Store) *MessagesTool {
	return &MessagesTool{store: store}
}

func (t *MessagesTool) Definition() mcp.Tool {
	return mcp.NewTool("devloop_messages",
		mcp.WithDescription("Read an objective's conversation log, oldest first."),
		mcp.WithString("objective", mcp.Required(), mcp.Description("Objective to read")),
		mcp.WithNumber("limit", mcp.Description("Only return the last N messages (default: all)")),
	)
}

func (t *MessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objective := strings.TrimSpace(req.GetString("objective", ""))
	if objective == "" {
		return mcp.NewToolResultError("'objective' is required"), nil
	}
	limit := req.GetInt("limit", 0)

	conv, err := t.store.Conversation(ctx, objective)
	if err != nil {
		return storeError(err), nil
	}
	if limit > 0 && len(conv) > limit {
		conv = conv[len(conv)-limit:]
	}
	if len(conv) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No messages on %q yet.", objective)), nil
	}

	var sb strings.Builder
	for _, m := range conv {
		fmt.Fprintf(&sb, "[%d] %s (%s):\n%s\n\n", m.Seq, m.Origin, m.Timestamp.Format("15:04:05"), m.Body)
	}
	return mcp.NewToolResultText(strings.TrimRight(sb.String(), "\n")), nil
}

func objectiveAndMessage(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	objective := strings.TrimSpace(req.GetString("objective", ""))
	message := strings.TrimSpace(req.GetString("message", ""))
	if objective == "" {
		return "", "", mcp.NewToolResultError("'objective' is required")
	}
	if message == "" {
		return "", "", mcp.NewToolResultError("'message' is required")
	}
	return objective, message, nil
}

func storeError(err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrUnknownObjective) {
		return mcp.NewToolResultError(fmt.Sprintf("%v (start one with devloop_execute)", err))
	}
	if errors.Is(err, orchestrator.ErrObjectiveBusy) {
		return mcp.NewToolResultError(fmt.Sprintf("%v (answer it with devloop_reply or wait for it to finish)", err))
	}
	return mcp.NewToolResultError(err.Error())
}
