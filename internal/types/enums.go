package types

import (
	"fmt"
	"strings"
)

// Origin identifies who wrote a message
type Origin string

const (
	// OriginUser marks messages typed by a human
	OriginUser Origin = "user"
	// OriginSystem marks messages written by the orchestrator or a role
	OriginSystem Origin = "system"
)

// IsValid checks if an origin value is valid
func (o Origin) IsValid() bool {
	return o == OriginUser || o == OriginSystem
}

// String returns the string representation of the origin
func (o Origin) String() string {
	return string(o)
}

// ActionKind is the action selected by the action role for a follow-up prompt
type ActionKind string

const (
	ActionAnswer  ActionKind = "answer"
	ActionRun     ActionKind = "run"
	ActionDeploy  ActionKind = "deploy"
	ActionFeature ActionKind = "feature"
	ActionBug     ActionKind = "bug"
	ActionReport  ActionKind = "report"
)

// AllActionKinds returns every action the dispatch table must handle
func AllActionKinds() []ActionKind {
	return []ActionKind{ActionAnswer, ActionRun, ActionDeploy, ActionFeature, ActionBug, ActionReport}
}

// IsValid checks if an action kind is valid
func (a ActionKind) IsValid() bool {
	for _, valid := range AllActionKinds() {
		if a == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the action kind
func (a ActionKind) String() string {
	return string(a)
}

// ParseActionKind converts raw role output into an ActionKind.
// Surrounding whitespace and case are ignored.
func ParseActionKind(raw string) (ActionKind, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid action %q, must be one of: %v", raw, AllActionKinds())
	}
	return kind, nil
}

// DecisionFunction is a function name chosen by the decision role
type DecisionFunction string

const (
	FunctionGeneratePDF        DecisionFunction = "generate_pdf_document"
	FunctionBrowserInteraction DecisionFunction = "browser_interaction"
	FunctionCodingProject      DecisionFunction = "coding_project"
)

// AllDecisionFunctions returns all valid decision function names
func AllDecisionFunctions() []DecisionFunction {
	return []DecisionFunction{FunctionGeneratePDF, FunctionBrowserInteraction, FunctionCodingProject}
}

// IsValid checks if a decision function is valid
func (f DecisionFunction) IsValid() bool {
	for _, valid := range AllDecisionFunctions() {
		if f == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the decision function
func (f DecisionFunction) String() string {
	return string(f)
}
