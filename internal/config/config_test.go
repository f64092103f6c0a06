package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/workspace"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(workspace.Path(dir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(workspace.ConfigPath(dir), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Backend != "claude" || cfg.Session.Backend != "sqlite" || cfg.Server.Port != 1337 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Orchestrator.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Orchestrator.PollInterval)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, `
llm:
  backend: kilocode
  model: mistral-large
kilocode:
  api_key: abc
orchestrator:
  poll_interval: 250ms
  suspend_timeout: 10m
  decision_failure: continue
server:
  port: 8080
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Backend != "kilocode" || cfg.LLMBinary() != "kilocode" || cfg.KiloCode.APIKey != "abc" {
		t.Errorf("llm config = %+v %+v", cfg.LLM, cfg.KiloCode)
	}
	if cfg.Claude.Binary != "claude" {
		t.Errorf("missing keys should keep defaults, claude.binary = %q", cfg.Claude.Binary)
	}

	oc := cfg.OrchestratorConfig()
	if oc.PollInterval != 250*time.Millisecond || oc.SuspendTimeout != 10*time.Minute {
		t.Errorf("durations = %v %v", oc.PollInterval, oc.SuspendTimeout)
	}
	if oc.DecisionPolicy != orchestrator.PolicyContinue {
		t.Errorf("policy = %q", oc.DecisionPolicy)
	}
	if oc.DownloadBaseURL != "http://127.0.0.1:8080" {
		t.Errorf("download base = %q", oc.DownloadBaseURL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeConfig(t, "netlify:\n  api_url: https://api.netlify.com/api/v1\n")
	t.Setenv("DEVLOOP_NETLIFY_TOKEN", "from-env")
	t.Setenv("DEVLOOP_SESSION_BACKEND", "memory")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Netlify.Token != "from-env" {
		t.Errorf("netlify.token = %q", cfg.Netlify.Token)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("session.backend = %q", cfg.Session.Backend)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"backend", "llm:\n  backend: gpt\n", "llm.backend"},
		{"session", "session:\n  backend: redis\n", "session.backend"},
		{"policy", "orchestrator:\n  decision_failure: retry\n", "decision_failure"},
		{"port", "server:\n  port: 70000\n", "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestGetAndSet(t *testing.T) {
	dir := writeConfig(t, "llm:\n  backend: claude\n  model: sonnet\n")

	if err := Set(dir, "llm.model", "opus"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := Get(dir, "llm.model")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "opus" {
		t.Errorf("llm.model = %v", got)
	}

	if _, err := Get(dir, "llm.nope"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestLoadInitConfig(t *testing.T) {
	dir := t.TempDir()
	if err := workspace.Init(dir, false); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() of generated config error: %v", err)
	}
	if cfg.Orchestrator.SuspendTimeout != 0 || cfg.Search.Endpoint == "" {
		t.Errorf("config = %+v", cfg.Orchestrator)
	}
}
