// Package logs keeps per-objective transcripts of every role prompt and raw
// model response, as markdown files under .devloop/logs/.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daydemir/devloop/internal/utils"
)

// Recorder receives transcript entries
type Recorder interface {
	Record(objective, heading, content string) error
}

// Discard is a Recorder that drops everything
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(string, string, string) error { return nil }

// Reporting wraps r so a failed write goes to warn and Record itself never
// fails. Callers that treat transcripts as best-effort use it.
func Reporting(r Recorder, warn func(error)) Recorder {
	return reporting{r: r, warn: warn}
}

type reporting struct {
	r    Recorder
	warn func(error)
}

func (w reporting) Record(objective, heading, content string) error {
	if err := w.r.Record(objective, heading, content); err != nil && w.warn != nil {
		w.warn(fmt.Errorf("transcript %s for %q: %w", heading, objective, err))
	}
	return nil
}

// Transcripts appends entries to one markdown file per objective
type Transcripts struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// NewTranscripts writes transcripts into dir, creating it on first use
func NewTranscripts(dir string) *Transcripts {
	return &Transcripts{dir: dir, now: time.Now}
}

// Path returns the transcript file for objective
func (t *Transcripts) Path(objective string) string {
	return filepath.Join(t.dir, utils.ObjectiveKey(objective)+".md")
}

// Record appends a "## HEADING (15:04:05)" section to the objective's transcript
func (t *Transcripts) Record(objective, heading, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("cannot create log directory: %w", err)
	}

	path := t.Path(objective)
	isNew := !utils.FileExists(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open transcript: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	if isNew {
		sb.WriteString(fmt.Sprintf("# Transcript: %s\n\n", objective))
		sb.WriteString(fmt.Sprintf("Started: %s\n\n---\n\n", t.now().Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", strings.ToUpper(heading), t.now().Format("15:04:05")))
	sb.WriteString(strings.TrimSpace(content))
	sb.WriteString("\n\n---\n\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("cannot write transcript: %w", err)
	}
	return nil
}

// Read returns the full transcript for objective
func (t *Transcripts) Read(objective string) (string, error) {
	data, err := os.ReadFile(t.Path(objective))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no transcript for %s", objective)
		}
		return "", err
	}
	return string(data), nil
}
