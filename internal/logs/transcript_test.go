package logs

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTranscriptRecord(t *testing.T) {
	tr := NewTranscripts(t.TempDir() + "/logs")
	tr.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	if err := tr.Record("Todo App", "prompt planner", "Build a todo app"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := tr.Record("Todo App", "response planner", `{"project":"todo"}`); err != nil {
		t.Fatal(err)
	}

	got, err := tr.Read("Todo App")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if strings.Count(got, "# Transcript: Todo App") != 1 {
		t.Errorf("header should be written once:\n%s", got)
	}
	for _, want := range []string{"## PROMPT PLANNER (09:30:00)", "## RESPONSE PLANNER (09:30:00)", `{"project":"todo"}`} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "PROMPT PLANNER") > strings.Index(got, "RESPONSE PLANNER") {
		t.Error("entries out of order")
	}
	if !strings.HasSuffix(tr.Path("todo-app"), "todo-app.md") || tr.Path("Todo App") == tr.Path("todo-app") {
		t.Errorf("Path() = %q, %q", tr.Path("Todo App"), tr.Path("todo-app"))
	}
}

func TestTranscriptReadMissing(t *testing.T) {
	tr := NewTranscripts(t.TempDir())
	if _, err := tr.Read("nothing"); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Record("x", "y", "z"); err != nil {
		t.Errorf("Discard.Record() error: %v", err)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(objective, heading, content string) error {
	return errors.New("disk full")
}

func TestReportingPassesFailuresToWarn(t *testing.T) {
	var warned []error
	rec := Reporting(failingRecorder{}, func(err error) { warned = append(warned, err) })

	if err := rec.Record("todo-app", "prompt planner", "x"); err != nil {
		t.Errorf("Record() = %v, want nil", err)
	}
	if len(warned) != 1 || !strings.Contains(warned[0].Error(), "disk full") || !strings.Contains(warned[0].Error(), "prompt planner") {
		t.Errorf("warned = %v", warned)
	}

	warned = nil
	ok := Reporting(NewTranscripts(t.TempDir()), func(err error) { warned = append(warned, err) })
	if err := ok.Record("todo-app", "prompt planner", "x"); err != nil || len(warned) != 0 {
		t.Errorf("Record() = %v, warned = %v", err, warned)
	}
}
