// Package session holds the shared, mutable record of each objective: its
// active/completed flags and its append-only message log.
//
// The orchestrator and any interface layer (CLI, MCP, HTTP) write to the same
// Store concurrently. Appends are ordered by a per-store sequence number and
// the tail of the log is read under the same synchronisation as appends.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/daydemir/devloop/internal/types"
)

var (
	// ErrUnknownObjective is returned when an objective was never created
	ErrUnknownObjective = errors.New("unknown objective")
	// ErrObjectiveExists is returned when creating an objective twice
	ErrObjectiveExists = errors.New("objective already exists")
)

// Snapshot is a point-in-time view of an objective's flags
type Snapshot struct {
	Objective    string    `json:"objective"`
	Active       bool      `json:"active"`
	Completed    bool      `json:"completed"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the session state contract shared by the orchestrator and
// interface layers.
type Store interface {
	Create(ctx context.Context, objective string) error
	Exists(ctx context.Context, objective string) (bool, error)
	List(ctx context.Context) ([]string, error)

	AppendUserMessage(ctx context.Context, objective, text string) (types.Message, error)
	AppendSystemMessage(ctx context.Context, objective, text string) (types.Message, error)

	Conversation(ctx context.Context, objective string) (types.Conversation, error)
	LatestUserMessage(ctx context.Context, objective string) (*types.Message, error)
	IsLatestMessageFromUser(ctx context.Context, objective string) (bool, error)
	// TailUserMessage returns the last message when it came from the user,
	// nil otherwise. The read is atomic with respect to appends.
	TailUserMessage(ctx context.Context, objective string) (*types.Message, error)

	SetActive(ctx context.Context, objective string, active bool) error
	SetCompleted(ctx context.Context, objective string, completed bool) error
	Snapshot(ctx context.Context, objective string) (Snapshot, error)

	ProjectPath(objective string) string
}

// Notifier is implemented by stores that can signal appends in-process.
// Waiters use it to wake early instead of waiting for the next poll tick.
type Notifier interface {
	// Changes returns a channel that is closed on the next append to objective
	Changes(objective string) <-chan struct{}
}
