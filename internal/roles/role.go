// Package roles defines the pipeline stages (planner, researcher, coder and
// the rest) as typed request/response units behind one generic interface.
package roles

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a response that could not be decoded or was
// missing required fields
var ErrMalformedResponse = errors.New("malformed response")

// Role is one stage of the pipeline
type Role[In, Out any] interface {
	Name() string
	Execute(ctx context.Context, in In) (Out, error)
}

// Func adapts a plain function to a Role
type Func[In, Out any] struct {
	RoleName string
	Fn       func(ctx context.Context, in In) (Out, error)
}

func (f Func[In, Out]) Name() string {
	return f.RoleName
}

func (f Func[In, Out]) Execute(ctx context.Context, in In) (Out, error) {
	return f.Fn(ctx, in)
}

// RoleError is returned when a role fails or answers with something unusable
type RoleError struct {
	Role      string
	Objective string
	Err       error
}

func (e *RoleError) Error() string {
	if e.Objective == "" {
		return fmt.Sprintf("role %s failed: %v", e.Role, e.Err)
	}
	return fmt.Sprintf("role %s failed for %q: %v", e.Role, e.Objective, e.Err)
}

func (e *RoleError) Unwrap() error {
	return e.Err
}
