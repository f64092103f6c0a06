package utils

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// Slugify converts a name to a directory-safe slug
// Example: "Todo App" -> "todo-app"
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	var result strings.Builder
	result.Grow(len(slug))
	for _, c := range slug {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result.WriteRune(c)
		}
	}
	if result.Len() == 0 {
		return "untitled"
	}
	return result.String()
}

// ObjectiveKey returns the directory name used for an objective's files.
// A name that is already its own slug is used as is; any other name gets a
// suffix derived from the raw name, so "Todo App" and "todo-app" (or two
// names with no ASCII letters) never share a directory.
// Example: "Todo App" -> "todo-app-1b4f0e98"
func ObjectiveKey(name string) string {
	slug := Slugify(name)
	if slug == name {
		return slug
	}
	sum := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
	return slug + "-" + sum[:8]
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Truncate shortens s to max runes, appending "..." when cut
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
