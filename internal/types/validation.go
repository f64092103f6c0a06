package types

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error with structured information
type ValidationError struct {
	Field    string      // JSON field path like "plan.plans[0]"
	Expected string      // What was expected: "non-empty string"
	Actual   interface{} // What was found
	Message  string      // Human-readable description
}

// ValidationErrors is a collection of validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

// Add appends a new validation error to the collection
func (v *ValidationErrors) Add(field, expected string, actual interface{}, msg string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:    field,
		Expected: expected,
		Actual:   actual,
		Message:  msg,
	})
}

// HasErrors returns true if there are any validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// OrNil returns v as an error when it holds errors, nil otherwise
func (v *ValidationErrors) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return "no validation errors"
	}

	if len(v.Errors) == 1 {
		e := v.Errors[0]
		return fmt.Sprintf("validation error in field %s: %s (found %s)", e.Field, e.Message, formatActual(e.Actual))
	}

	fields := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		fields[i] = e.Field
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(v.Errors), strings.Join(fields, ", "))
}

// formatActual formats the actual value for display
func formatActual(actual interface{}) string {
	if actual == nil {
		return "null"
	}

	switch v := actual.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []string:
		if len(v) == 0 {
			return "[]"
		}
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return fmt.Sprintf("%v", actual)
	}
}
