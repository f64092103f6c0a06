package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/daydemir/devloop/internal/llm"
	"github.com/daydemir/devloop/internal/types"
)

var _ llm.OutputHandler = (*Display)(nil)

func newTestDisplay() (*Display, *bytes.Buffer) {
	var buf bytes.Buffer
	d := NewWithOptions(&buf, true)
	d.now = func() time.Time { return time.Date(2026, 1, 2, 10, 11, 12, 0, time.Local) }
	return d, &buf
}

func TestStatusLines(t *testing.T) {
	d, buf := newTestDisplay()

	d.Success("saved 3 files")
	d.Error("planner failed")
	d.Stage("todo-app", "researching")
	d.Info("Objective", "todo-app")

	out := buf.String()
	for _, want := range []string{
		"[10:11:12] ✓ saved 3 files",
		"[10:11:12] ✗ planner failed",
		"[10:11:12] ▸ [todo-app] researching",
		"Objective: todo-app",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("non-terminal output should not contain color codes")
	}
}

func TestMessage(t *testing.T) {
	d, buf := newTestDisplay()
	d.Message(types.Message{Origin: types.OriginUser, Body: "React please"})
	d.Message(types.Message{Origin: types.OriginSystem, Body: "Thanks! 🙌"})

	out := buf.String()
	if !strings.Contains(out, "you: React please") || !strings.Contains(out, "devloop: Thanks! 🙌") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestModelOutputGutter(t *testing.T) {
	d, buf := newTestDisplay()
	d.OnToolUse("WebFetch")
	d.OnToolUse("WebFetch")
	d.OnText("opened the page")
	d.OnDone("all done")

	out := buf.String()
	if !strings.Contains(out, "[2] opened the page") {
		t.Errorf("tool count missing:\n%s", out)
	}
	if !strings.Contains(out, "[Done] all done") {
		t.Errorf("done line missing:\n%s", out)
	}
}

func TestBox(t *testing.T) {
	d, buf := newTestDisplay()
	d.Box("DEVLOOP", "line one")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("box should have 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "DEVLOOP") || !strings.Contains(lines[1], "line one") {
		t.Errorf("unexpected box:\n%s", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		maxLines int
	}{
		{name: "short", text: "hello world", width: 40, maxLines: 1},
		{name: "wraps", text: strings.Repeat("word ", 30), width: 40, maxLines: 5},
		{name: "capped", text: strings.Repeat("word ", 200), width: 20, maxLines: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := wrapText(tt.text, tt.width)
			if len(lines) > tt.maxLines {
				t.Errorf("got %d lines, want at most %d", len(lines), tt.maxLines)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("a\nb   c", 10); got != "a b c" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("Truncate() = %q", got)
	}
}
