package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Project string   `json:"project"`
		Plans   []string `json:"plans"`
	}

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "bare object",
			output: `{"project": "todo", "plans": ["a"]}`,
			want:   "todo",
		},
		{
			name:   "fenced json block",
			output: "Here you go:\n```json\n{\"project\": \"fenced\"}\n```\nanything else?",
			want:   "fenced",
		},
		{
			name:   "skips non-json fence",
			output: "```bash\nnpm install\n```\n```json\n{\"project\": \"second\"}\n```",
			want:   "second",
		},
		{
			name:   "object embedded in prose with braces in strings",
			output: `Sure! {"project": "a } tricky { name", "plans": []} Thanks.`,
			want:   "a } tricky { name",
		},
		{
			name:    "no json",
			output:  "I could not decide.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			output:  `{"project": "oops"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := ExtractJSON(tt.output, &got)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error: %v", err)
			}
			if got.Project != tt.want {
				t.Errorf("Project = %q, want %q", got.Project, tt.want)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	var items []map[string]string
	if err := ExtractJSON("result:\n[{\"function\": \"coding_project\"}]", &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0]["function"] != "coding_project" {
		t.Errorf("got %v", items)
	}
	if err := ExtractJSON("", &items); !errors.Is(err, ErrNoJSON) {
		t.Errorf("empty output error = %v, want ErrNoJSON", err)
	}
}
