package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/utils"
	"github.com/daydemir/devloop/internal/workspace"
)

// EnvPrefix prefixes environment overrides, e.g. DEVLOOP_NETLIFY_TOKEN
const EnvPrefix = "DEVLOOP"

// Config represents the devloop configuration
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm"`
	Claude       ClaudeConfig       `mapstructure:"claude"`
	KiloCode     KiloCodeConfig     `mapstructure:"kilocode"`
	Session      SessionConfig      `mapstructure:"session"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Server       ServerConfig       `mapstructure:"server"`
	Search       SearchConfig       `mapstructure:"search"`
	Document     DocumentConfig     `mapstructure:"document"`
	Netlify      NetlifyConfig      `mapstructure:"netlify"`
}

// LLMConfig contains LLM backend settings
type LLMConfig struct {
	Backend string `mapstructure:"backend"`
	Model   string `mapstructure:"model"`
}

// ClaudeConfig contains Claude-specific settings
type ClaudeConfig struct {
	Binary string `mapstructure:"binary"`
}

// KiloCodeConfig contains KiloCode-specific settings
type KiloCodeConfig struct {
	Binary string `mapstructure:"binary"`
	APIKey string `mapstructure:"api_key"`
}

// SessionConfig selects where session state lives
type SessionConfig struct {
	Backend string `mapstructure:"backend"`
}

// OrchestratorConfig mirrors orchestrator.Config in YAML form
type OrchestratorConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	SuspendTimeout    time.Duration `mapstructure:"suspend_timeout"`
	SearchConcurrency int           `mapstructure:"search_concurrency"`
	DecisionFailure   string        `mapstructure:"decision_failure"`
	Platform          string        `mapstructure:"platform"`
}

// ServerConfig is the HTTP listener serving downloads and messages
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type SearchConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type DocumentConfig struct {
	PandocBinary string `mapstructure:"pandoc_binary"`
	PDFEngine    string `mapstructure:"pdf_engine"`
}

type NetlifyConfig struct {
	APIURL string `mapstructure:"api_url"`
	Token  string `mapstructure:"token"`
}

// Load reads the config from the workspace. Missing keys fall back to
// defaults and every key can be overridden from the environment.
func Load(workspaceDir string) (*Config, error) {
	v := newViper()

	configPath := workspace.ConfigPath(workspaceDir)
	if utils.FileExists(configPath) {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper registers every default so environment overrides apply even for
// keys absent from config.yaml
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("llm.backend", d.LLM.Backend)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("claude.binary", d.Claude.Binary)
	v.SetDefault("kilocode.binary", d.KiloCode.Binary)
	v.SetDefault("kilocode.api_key", d.KiloCode.APIKey)
	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("orchestrator.poll_interval", d.Orchestrator.PollInterval)
	v.SetDefault("orchestrator.suspend_timeout", d.Orchestrator.SuspendTimeout)
	v.SetDefault("orchestrator.search_concurrency", d.Orchestrator.SearchConcurrency)
	v.SetDefault("orchestrator.decision_failure", d.Orchestrator.DecisionFailure)
	v.SetDefault("orchestrator.platform", d.Orchestrator.Platform)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("search.endpoint", d.Search.Endpoint)
	v.SetDefault("document.pandoc_binary", d.Document.PandocBinary)
	v.SetDefault("document.pdf_engine", d.Document.PDFEngine)
	v.SetDefault("netlify.api_url", d.Netlify.APIURL)
	v.SetDefault("netlify.token", d.Netlify.Token)
	return v
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	orch := orchestrator.DefaultConfig()
	return &Config{
		LLM: LLMConfig{
			Backend: "claude",
			Model:   "sonnet",
		},
		Claude: ClaudeConfig{
			Binary: "claude",
		},
		KiloCode: KiloCodeConfig{
			Binary: "kilocode",
		},
		Session: SessionConfig{
			Backend: "sqlite",
		},
		Orchestrator: OrchestratorConfig{
			PollInterval:      orch.PollInterval,
			SearchConcurrency: orch.SearchConcurrency,
			DecisionFailure:   string(orch.DecisionPolicy),
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 1337,
		},
		Search: SearchConfig{
			Endpoint: "https://html.duckduckgo.com/html/",
		},
		Document: DocumentConfig{
			PandocBinary: "pandoc",
		},
		Netlify: NetlifyConfig{
			APIURL: "https://api.netlify.com/api/v1",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = defaults.LLM.Backend
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}
	if cfg.Claude.Binary == "" {
		cfg.Claude.Binary = defaults.Claude.Binary
	}
	if cfg.KiloCode.Binary == "" {
		cfg.KiloCode.Binary = defaults.KiloCode.Binary
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = defaults.Session.Backend
	}
	if cfg.Orchestrator.PollInterval == 0 {
		cfg.Orchestrator.PollInterval = defaults.Orchestrator.PollInterval
	}
	if cfg.Orchestrator.SearchConcurrency == 0 {
		cfg.Orchestrator.SearchConcurrency = defaults.Orchestrator.SearchConcurrency
	}
	if cfg.Orchestrator.DecisionFailure == "" {
		cfg.Orchestrator.DecisionFailure = defaults.Orchestrator.DecisionFailure
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = defaults.Search.Endpoint
	}
	if cfg.Document.PandocBinary == "" {
		cfg.Document.PandocBinary = defaults.Document.PandocBinary
	}
	if cfg.Netlify.APIURL == "" {
		cfg.Netlify.APIURL = defaults.Netlify.APIURL
	}
}

// Validate rejects values no component can run with
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case "claude", "kilocode":
	default:
		return fmt.Errorf("llm.backend: invalid value %q, must be claude or kilocode", c.LLM.Backend)
	}
	switch c.Session.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("session.backend: invalid value %q, must be memory or sqlite", c.Session.Backend)
	}
	if !orchestrator.DecisionPolicy(c.Orchestrator.DecisionFailure).IsValid() {
		return fmt.Errorf("orchestrator.decision_failure: invalid value %q, must be stop or continue", c.Orchestrator.DecisionFailure)
	}
	if c.Orchestrator.PollInterval < 0 || c.Orchestrator.SuspendTimeout < 0 {
		return fmt.Errorf("orchestrator durations cannot be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d is out of range", c.Server.Port)
	}
	return nil
}

// BaseURL is the address the HTTP listener serves on
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Addr is the listen address for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// OrchestratorConfig converts to the orchestrator's own config
func (c *Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		PollInterval:      c.Orchestrator.PollInterval,
		SuspendTimeout:    c.Orchestrator.SuspendTimeout,
		SearchConcurrency: c.Orchestrator.SearchConcurrency,
		DecisionPolicy:    orchestrator.DecisionPolicy(c.Orchestrator.DecisionFailure),
		DownloadBaseURL:   c.BaseURL(),
		Platform:          c.Orchestrator.Platform,
	}
}

// LLMBinary returns the CLI binary for the configured backend
func (c *Config) LLMBinary() string {
	if c.LLM.Backend == "kilocode" {
		return c.KiloCode.Binary
	}
	return c.Claude.Binary
}

// Get reads one dotted key from the workspace config file
func Get(workspaceDir, key string) (any, error) {
	v := viper.New()
	v.SetConfigFile(workspace.ConfigPath(workspaceDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	value := v.Get(key)
	if value == nil {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return value, nil
}

// Set writes one dotted key to the workspace config file. Comma-separated
// values are stored as lists.
func Set(workspaceDir, key, value string) error {
	v := viper.New()
	v.SetConfigFile(workspace.ConfigPath(workspaceDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.Contains(value, ",") {
		v.Set(key, strings.Split(value, ","))
	} else {
		v.Set(key, value)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
