package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/daydemir/devloop/internal/roles"
)

// ErrSuspendTimeout is returned when no user reply arrives within
// Config.SuspendTimeout
var ErrSuspendTimeout = errors.New("timed out waiting for user reply")

// ErrObjectiveBusy is returned when a run is started on an objective that
// already has one in flight
var ErrObjectiveBusy = errors.New("objective already has a run in flight")

// CollaboratorError wraps a failure from an external service (search,
// browser, document renderer, deployer, code workspace, keyword extractor).
// Nothing in the orchestrator retries these.
type CollaboratorError struct {
	Collaborator string
	Objective    string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Collaborator, e.Objective, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func collaboratorErr(name, objective string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Collaborator: name, Objective: objective, Err: err}
}

// invoke runs a role and guarantees failures surface as *roles.RoleError
func invoke[In, Out any](ctx context.Context, r roles.Role[In, Out], objective string, in In) (Out, error) {
	out, err := r.Execute(ctx, in)
	if err == nil {
		return out, nil
	}
	var roleErr *roles.RoleError
	if errors.As(err, &roleErr) {
		return out, err
	}
	return out, &roles.RoleError{Role: r.Name(), Objective: objective, Err: err}
}
