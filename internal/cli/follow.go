package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/daydemir/devloop/internal/orchestrator"
)

const followInterval = 300 * time.Millisecond

// stdinIsTerminal reports whether answers can be read interactively
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLines streams trimmed, non-empty lines from r
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lines <- line
			}
		}
	}()
	return lines
}

// follow prints the objective's messages as they arrive until the run ends.
// skip is the number of messages already on screen. When an execute run
// pauses on a question, the next line from answers is recorded as the reply;
// answers may be nil, in which case the reply must come from elsewhere
// (devloop reply, MCP, HTTP).
func (a *app) follow(ctx context.Context, runID string, skip int, answers <-chan string) (orchestrator.Run, error) {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	printed := skip
	var askedSeq int64

	for {
		run, _ := a.sup.Get(runID)

		waiting := false
		if run.Objective != "" {
			conv, err := a.store.Conversation(ctx, run.Objective)
			if err == nil {
				for _, m := range conv[min(printed, len(conv)):] {
					a.display.Message(m)
				}
				printed = len(conv)
			}

			if run.Kind == orchestrator.RunExecute && run.State == orchestrator.RunRunning && len(conv) > 0 {
				snap, err := a.store.Snapshot(ctx, run.Objective)
				last := conv[len(conv)-1]
				if err == nil && !snap.Active && !snap.Completed && !last.FromUser() {
					waiting = true
					if last.Seq != askedSeq {
						askedSeq = last.Seq
						a.display.Waiting(run.Objective, last.Body)
						if answers == nil {
							a.display.Info("reply", `devloop reply `+run.Objective+` "<answer>"`)
						}
					}
				}
			}
		}

		if run.State != orchestrator.RunRunning {
			if run.State == orchestrator.RunFailed {
				return run, errors.New(run.Error)
			}
			return run, nil
		}

		select {
		case <-ctx.Done():
			a.sup.Wait()
			run, _ = a.sup.Get(runID)
			return run, ctx.Err()
		case line, ok := <-answers:
			if !ok {
				answers = nil
				continue
			}
			if !waiting {
				a.display.Warning("no question is pending; input ignored")
				continue
			}
			if _, err := a.store.AppendUserMessage(ctx, run.Objective, line); err != nil {
				a.display.Error(err.Error())
			}
		case <-ticker.C:
		}
	}
}
