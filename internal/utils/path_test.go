package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "todo",
			expected: "todo",
		},
		{
			name:     "mixed case with spaces",
			input:    "Todo App",
			expected: "todo-app",
		},
		{
			name:     "special characters removed",
			input:    "Weather! Dashboard?",
			expected: "weather-dashboard",
		},
		{
			name:     "underscores and numbers preserved",
			input:    "api_v2 client",
			expected: "api_v2-client",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  todo-app  ",
			expected: "todo-app",
		},
		{
			name:     "nothing usable",
			input:    "../..",
			expected: "untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestObjectiveKey(t *testing.T) {
	if got := ObjectiveKey("todo-app"); got != "todo-app" {
		t.Errorf("ObjectiveKey(slug) = %q, want it unchanged", got)
	}
	if got := ObjectiveKey("Todo App"); got != ObjectiveKey("Todo App") || !strings.HasPrefix(got, "todo-app-") {
		t.Errorf("ObjectiveKey(\"Todo App\") = %q", got)
	}

	collide := [][2]string{
		{"Todo App", "todo-app"},
		{"C++ parser", "C parser"},
		{"カレンダー", "日記アプリ"},
		{"カレンダー", "untitled"},
	}
	for _, pair := range collide {
		if Slugify(pair[0]) != Slugify(pair[1]) {
			t.Fatalf("%q and %q should share a slug", pair[0], pair[1])
		}
		if a, b := ObjectiveKey(pair[0]), ObjectiveKey(pair[1]); a == b {
			t.Errorf("ObjectiveKey(%q) == ObjectiveKey(%q) == %q", pair[0], pair[1], a)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("a longer sentence", 8); got != "a lon..." {
		t.Errorf("Truncate() = %q, want %q", got, "a lon...")
	}
}

func TestResolveBinaryPathAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "pandoc")
	if got := ResolveBinaryPath(abs); got != abs {
		t.Errorf("ResolveBinaryPath(%q) = %q", abs, got)
	}
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if FileExists(path) {
		t.Fatal("file should not exist yet")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("file should exist")
	}
}
