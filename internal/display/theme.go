package display

import (
	"fmt"

	"github.com/fatih/color"
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionBreak   = "━"
)

// Status symbols
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolStage   = "▸"
	SymbolWaiting = "○"
)

// Gutter markers for model output
const (
	GutterModel = "│"
	GutterDot   = "·"
)

// IndentModel is the indentation for model output
const IndentModel = "  "

// Theme holds all color functions for consistent styling
type Theme struct {
	// Orchestration (prominent)
	Border func(a ...interface{}) string
	Label  func(a ...interface{}) string
	Text   func(a ...interface{}) string

	// Model output (subdued)
	ModelTimestamp func(a ...interface{}) string
	ModelText      func(a ...interface{}) string
	ModelToolCount func(a ...interface{}) string

	// Conversation
	UserText   func(a ...interface{}) string
	SystemText func(a ...interface{}) string

	// Status indicators
	Success func(a ...interface{}) string
	Error   func(a ...interface{}) string
	Warning func(a ...interface{}) string
	Info    func(a ...interface{}) string

	// Structural elements
	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string
}

// DefaultTheme creates the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		Border: color.New(color.FgCyan).SprintFunc(),
		Label:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		Text:   color.New(color.FgWhite).SprintFunc(),

		// Model output - dimmer/gray to distinguish from orchestration
		ModelTimestamp: color.New(color.FgHiBlack).SprintFunc(),
		ModelText:      color.New(color.FgWhite).SprintFunc(),
		ModelToolCount: color.New(color.FgHiBlack).SprintFunc(),

		UserText:   color.New(color.FgMagenta).SprintFunc(),
		SystemText: color.New(color.FgWhite).SprintFunc(),

		Success: color.New(color.FgGreen).SprintFunc(),
		Error:   color.New(color.FgRed).SprintFunc(),
		Warning: color.New(color.FgYellow).SprintFunc(),
		Info:    color.New(color.FgCyan).SprintFunc(),

		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),
	}
}

// NoColorTheme creates a theme without colors (for --no-color flag or non-TTY)
func NoColorTheme() *Theme {
	identity := func(a ...interface{}) string {
		if len(a) == 0 {
			return ""
		}
		if s, ok := a[0].(string); ok {
			return s
		}
		return fmt.Sprint(a...)
	}
	return &Theme{
		Border:         identity,
		Label:          identity,
		Text:           identity,
		ModelTimestamp: identity,
		ModelText:      identity,
		ModelToolCount: identity,
		UserText:       identity,
		SystemText:     identity,
		Success:        identity,
		Error:          identity,
		Warning:        identity,
		Info:           identity,
		Bold:           identity,
		Dim:            identity,
		Separator:      identity,
	}
}
