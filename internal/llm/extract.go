package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model answer contains no JSON value
var ErrNoJSON = errors.New("no JSON found in model output")

// ExtractJSON decodes the first JSON object or array in a model answer into
// v. A fenced ```json block is preferred; otherwise the first balanced
// {...} or [...] span is used.
func ExtractJSON(output string, v any) error {
	candidate := fencedBlock(output)
	if candidate == "" {
		candidate = balancedSpan(output)
	}
	if candidate == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

func fencedBlock(s string) string {
	for {
		start := strings.Index(s, "```")
		if start == -1 {
			return ""
		}
		rest := s[start+3:]
		nl := strings.IndexByte(rest, '\n')
		if nl == -1 {
			return ""
		}
		lang := strings.TrimSpace(rest[:nl])
		body := rest[nl+1:]
		end := strings.Index(body, "```")
		if end == -1 {
			return ""
		}
		if lang == "" || strings.EqualFold(lang, "json") {
			block := strings.TrimSpace(body[:end])
			if strings.HasPrefix(block, "{") || strings.HasPrefix(block, "[") {
				return block
			}
		}
		s = body[end+3:]
	}
}

// balancedSpan returns the first bracket-balanced JSON-looking span,
// honouring string literals and escapes.
func balancedSpan(s string) string {
	open := strings.IndexAny(s, "{[")
	for open != -1 {
		if end := matchClose(s[open:]); end > 0 {
			return s[open : open+end]
		}
		next := strings.IndexAny(s[open+1:], "{[")
		if next == -1 {
			return ""
		}
		open += next + 1
	}
	return ""
}

func matchClose(s string) int {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return -1
}
