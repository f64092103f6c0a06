// Package display provides unified output formatting for the devloop CLI.
// It visually separates orchestration status from model output and from
// the conversation itself.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/daydemir/devloop/internal/llm"
	"github.com/daydemir/devloop/internal/types"
	"golang.org/x/term"
)

// Display handles all CLI output with visual hierarchy. It is safe for
// concurrent use; research fan-out reports from several goroutines.
type Display struct {
	out       io.Writer
	theme     *Theme
	termWidth int
	now       func() time.Time

	mu        sync.Mutex
	toolCount int
}

// New creates a Display writing to stdout
func New() *Display {
	return NewWithOptions(os.Stdout, false)
}

// NewWithOptions creates a Display writing to out. Colors are disabled when
// noColor is set or out is not a terminal.
func NewWithOptions(out io.Writer, noColor bool) *Display {
	d := &Display{
		out:       out,
		termWidth: terminalWidth(out),
		now:       time.Now,
	}
	if noColor || !isTerminal(out) {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the terminal width, defaulting to 80
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

func (d *Display) timestamp() string {
	return d.now().Format("[15:04:05]")
}

func (d *Display) println(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, s)
}

// Box prints a boxed message with a title
func (d *Display) Box(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	remaining := width - (len(title) + 3)
	if remaining < 0 {
		remaining = 0
	}

	var sb strings.Builder
	sb.WriteString(d.theme.Border(BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remaining) + BoxTopRight))
	sb.WriteString("\n")
	for _, line := range lines {
		sb.WriteString(d.theme.Border(BoxVertical) + " " + d.theme.Text(padRight(line, width-2)) + " " + d.theme.Border(BoxVertical))
		sb.WriteString("\n")
	}
	sb.WriteString(d.theme.Border(BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight))
	d.println(sb.String())
}

// Status prints a single-line timestamped status message
func (d *Display) Status(symbol, message string) {
	d.println(fmt.Sprintf("%s %s %s", d.theme.Border(d.timestamp()), symbol, d.theme.Text(message)))
}

// Success prints a success message with green checkmark
func (d *Display) Success(message string) {
	d.Status(d.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with red X
func (d *Display) Error(message string) {
	d.Status(d.theme.Error(SymbolError), message)
}

// Warning prints a warning message with yellow triangle
func (d *Display) Warning(message string) {
	d.Status(d.theme.Warning(SymbolWarning), message)
}

// Info prints an info message with cyan label
func (d *Display) Info(label, message string) {
	d.Status(d.theme.Info(label+":"), message)
}

// Waiting prints the suspended-for-input notice
func (d *Display) Waiting(objective, question string) {
	d.Status(d.theme.Warning(SymbolWaiting), fmt.Sprintf("[%s] waiting for your answer: %s", objective, question))
}

// Stage reports an orchestration stage transition
func (d *Display) Stage(objective, stage string) {
	d.Status(d.theme.Label(SymbolStage), fmt.Sprintf("[%s] %s", objective, stage))
}

// Message prints one conversation message
func (d *Display) Message(m types.Message) {
	who := d.theme.SystemText("devloop")
	body := d.theme.SystemText(m.Body)
	if m.FromUser() {
		who = d.theme.UserText("you")
		body = d.theme.UserText(m.Body)
	}
	ts := d.theme.Dim(m.Timestamp.Local().Format("[15:04:05]"))
	d.println(fmt.Sprintf("%s %s %s", ts, d.theme.Bold(who+":"), body))
}

// OnToolUse implements llm.OutputHandler
func (d *Display) OnToolUse(name string) {
	d.mu.Lock()
	d.toolCount++
	d.mu.Unlock()
}

// OnText implements llm.OutputHandler, printing model output with a gutter
func (d *Display) OnText(text string) {
	d.mu.Lock()
	tools := d.toolCount
	d.toolCount = 0
	d.mu.Unlock()

	toolStr := ""
	if tools > 0 {
		toolStr = " " + d.theme.ModelToolCount(fmt.Sprintf("[%d]", tools))
	}

	var sb strings.Builder
	for i, line := range wrapText(text, d.termWidth-20) {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%s%s %s%s %s", IndentModel, d.theme.ModelTimestamp(GutterModel), d.theme.Dim(d.timestamp()), toolStr, d.theme.ModelText(line)))
		} else {
			sb.WriteString(fmt.Sprintf("\n%s%s %s%s", IndentModel, d.theme.ModelTimestamp(GutterDot), strings.Repeat(" ", 10), d.theme.ModelText(line)))
		}
	}
	d.println(sb.String())
}

// OnDone implements llm.OutputHandler
func (d *Display) OnDone(result string) {
	d.println(fmt.Sprintf("%s%s %s %s", IndentModel,
		d.theme.ModelTimestamp(d.timestamp()),
		d.theme.ModelToolCount("[Done]"),
		d.theme.ModelText(Truncate(result, 200))))
}

// OnTokenUsage implements llm.OutputHandler
func (d *Display) OnTokenUsage(usage llm.TokenStats) {}

// SectionBreak prints a horizontal separator
func (d *Display) SectionBreak() {
	d.println(d.theme.Separator(strings.Repeat(SectionBreak, d.termWidth)))
}

// Duration prints execution duration
func (d *Display) Duration(dur time.Duration) {
	d.println(fmt.Sprintf("   Duration: %s", dur.Round(time.Second)))
}

// Theme returns the current theme for external use
func (d *Display) Theme() *Theme {
	return d.theme
}

// wrapText wraps text to width, returning at most 5 lines
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	text = CleanText(text)
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > maxWidth && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	if len(lines) > 5 {
		lines = lines[:5]
		if len(lines[4]) > maxWidth-3 {
			lines[4] = lines[4][:maxWidth-3]
		}
		lines[4] = lines[4] + "..."
	}
	return lines
}

// padRight pads a string to the specified width
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate truncates text to max length with ellipsis
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses spaces
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
