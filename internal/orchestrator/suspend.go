package orchestrator

import (
	"context"
	"time"

	"github.com/daydemir/devloop/internal/session"
	"github.com/daydemir/devloop/internal/types"
)

// awaitUserReply blocks until the tail of the objective's log is a user
// message appended after the message numbered after. A trailing system
// message means the user has not answered yet, even if they wrote earlier.
//
// The log is checked on every PollInterval tick and, when the store is a
// session.Notifier, on every append. Cancellation returns ctx.Err(); a
// configured SuspendTimeout returns ErrSuspendTimeout.
func (o *Orchestrator) awaitUserReply(ctx context.Context, objective string, after int64) (types.Message, error) {
	var timeout <-chan time.Time
	if o.cfg.SuspendTimeout > 0 {
		timer := time.NewTimer(o.cfg.SuspendTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	notifier, _ := o.store.(session.Notifier)

	for {
		// Subscribe before reading so an append between the two still wakes us
		var changed <-chan struct{}
		if notifier != nil {
			changed = notifier.Changes(objective)
		}

		msg, err := o.store.TailUserMessage(ctx, objective)
		if err != nil {
			return types.Message{}, err
		}
		if msg != nil && msg.Seq > after {
			return *msg, nil
		}

		select {
		case <-ctx.Done():
			return types.Message{}, ctx.Err()
		case <-timeout:
			return types.Message{}, ErrSuspendTimeout
		case <-ticker.C:
		case <-changed:
		}
	}
}
