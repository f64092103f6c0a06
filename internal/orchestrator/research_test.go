package orchestrator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestSearchQueriesNormalisesKeys(t *testing.T) {
	tests := []struct {
		name     string
		queries  []string
		wantKeys []string
	}{
		{"casing and whitespace", []string{"alpha", "beta"}, []string{"alpha", "beta"}},
		{"mixed", []string{"  Alpha ", "BETA\n"}, []string{"alpha", "beta"}},
		{"duplicates and blanks", []string{"alpha", " ALPHA", "", "  "}, []string{"alpha"}},
		{"none", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.SearchConcurrency = 2 })
			h.seed("app", "hi")

			results, err := h.orch.searchQueries(context.Background(), "app", tt.queries)
			if err != nil {
				t.Fatalf("searchQueries() error: %v", err)
			}
			if len(results) != len(tt.wantKeys) {
				t.Fatalf("got %d results, want %d: %v", len(results), len(tt.wantKeys), results)
			}
			for _, key := range tt.wantKeys {
				content, ok := results[key]
				if !ok {
					t.Errorf("missing key %q", key)
					continue
				}
				if content != "formatted: page https://example.com/"+key {
					t.Errorf("results[%q] = %q", key, content)
				}
			}

			sort.Strings(h.queries)
			if strings.Join(h.queries, ",") != strings.Join(tt.wantKeys, ",") {
				t.Errorf("searched %v, want %v", h.queries, tt.wantKeys)
			}
			if h.count("screenshot") != len(tt.wantKeys) || h.count("formatter") != len(tt.wantKeys) {
				t.Errorf("calls = %v", h.calls)
			}
		})
	}
}

func TestSearchQueriesFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.searchErr = errors.New("blocked")

	_, err := h.orch.searchQueries(context.Background(), "app", []string{"alpha", "beta"})
	var collabErr *CollaboratorError
	if !errors.As(err, &collabErr) {
		t.Fatalf("error = %v, want CollaboratorError", err)
	}
	if collabErr.Objective != "app" || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("error = %v", err)
	}
}
