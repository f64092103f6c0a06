// Package server exposes devloop to MCP clients over stdio.
//
// Only wiring lives here; every tool delegates to the supervisor or the
// session store it is given.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/session"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every devloop tool registered
func New(sup *orchestrator.Supervisor, store session.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"devloop",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	executeTool := NewExecuteTool(sup)
	s.AddTool(executeTool.Definition(), executeTool.Handle)

	replyTool := NewReplyTool(store)
	s.AddTool(replyTool.Definition(), replyTool.Handle)

	chatTool := NewChatTool(sup)
	s.AddTool(chatTool.Definition(), chatTool.Handle)

	decideTool := NewDecideTool(sup, store)
	s.AddTool(decideTool.Definition(), decideTool.Handle)

	statusTool := NewStatusTool(sup, store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	messagesTool := NewMessagesTool(store)
	s.AddTool(messagesTool.Definition(), messagesTool.Handle)

	return s
}

// ServeStdio blocks serving s on stdin/stdout
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `devloop drives a plan -> research -> code pipeline for an objective.

Typical flow:
1. devloop_execute with a prompt starts a run in the background.
2. devloop_status shows when the run is active, waiting (inactive and not completed) or completed.
3. When the last message in devloop_messages is a question, answer it with devloop_reply.
4. After completion, use devloop_chat for follow-ups (questions, running, deploying, new features, bug fixes, reports).
5. devloop_decide lets devloop choose between writing a PDF, browsing, or a new coding project.`
