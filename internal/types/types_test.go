package types

import (
	"strings"
	"testing"
)

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid plan",
			plan: Plan{
				ObjectiveName: "todo-app",
				Steps:         []string{"Create the HTML page", "Add the list logic"},
				Summary:       "A todo app",
			},
			wantErr: false,
		},
		{
			name: "missing objective name",
			plan: Plan{
				ObjectiveName: "  ",
				Steps:         []string{"Create the HTML page"},
			},
			wantErr: true,
			errMsg:  "plan.project",
		},
		{
			name: "no steps",
			plan: Plan{
				ObjectiveName: "todo-app",
			},
			wantErr: true,
			errMsg:  "plan.plans",
		},
		{
			name: "blank step",
			plan: Plan{
				ObjectiveName: "todo-app",
				Steps:         []string{"Create the HTML page", ""},
			},
			wantErr: true,
			errMsg:  "plan.plans[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Plan.Validate() expected error containing %q, got nil", tt.errMsg)
					return
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Plan.Validate() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Plan.Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestParseActionKind(t *testing.T) {
	for _, kind := range AllActionKinds() {
		got, err := ParseActionKind(string(kind))
		if err != nil {
			t.Errorf("ParseActionKind(%q) unexpected error: %v", kind, err)
		}
		if got != kind {
			t.Errorf("ParseActionKind(%q) = %q", kind, got)
		}
	}

	if got, err := ParseActionKind(" Deploy\n"); err != nil || got != ActionDeploy {
		t.Errorf("ParseActionKind should normalise case and whitespace, got %q, %v", got, err)
	}
	if _, err := ParseActionKind("dance"); err == nil {
		t.Error("ParseActionKind(\"dance\") expected error, got nil")
	}
	if len(AllActionKinds()) != 6 {
		t.Errorf("expected 6 action kinds, got %d", len(AllActionKinds()))
	}
}

func TestDecisionItemValidate(t *testing.T) {
	item := DecisionItem{Function: FunctionGeneratePDF, Args: map[string]string{"user_prompt": "X"}}
	if err := item.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if item.UserPrompt() != "X" {
		t.Errorf("UserPrompt() = %q, want %q", item.UserPrompt(), "X")
	}

	bad := DecisionItem{Function: "send_email"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown function")
	}
}

func TestResearchResultNeedsInput(t *testing.T) {
	if (ResearchResult{ClarifyingQuestion: "   "}).NeedsInput() {
		t.Error("whitespace question should not require input")
	}
	if !(ResearchResult{ClarifyingQuestion: "Which database?"}).NeedsInput() {
		t.Error("question should require input")
	}
}

func TestConversationLines(t *testing.T) {
	conv := Conversation{
		{Origin: OriginUser, Body: "Build a todo app"},
		{Origin: OriginSystem, Body: "On it"},
	}
	want := "user: Build a todo app\nsystem: On it"
	if conv.String() != want {
		t.Errorf("Conversation.String() = %q, want %q", conv.String(), want)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.OrNil() != nil {
		t.Fatal("empty collection should be nil")
	}

	errs.Add("plan.project", "non-empty string", "", "objective name is required")
	if !strings.Contains(errs.Error(), `found ""`) {
		t.Errorf("single error message should include actual value, got %q", errs.Error())
	}

	errs.Add("plan.plans", "at least one step", []string{}, "plan must contain steps")
	if !strings.Contains(errs.Error(), "2 errors") {
		t.Errorf("multi error message = %q", errs.Error())
	}
}
