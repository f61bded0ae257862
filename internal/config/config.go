// Package config loads the mend configuration: which tools report issues,
// which backends answer, where fixes go and how the loop behaves.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all mend configuration.
type Config struct {
	// Workspace is the directory tools run in and file paths are relative
	// to. Relative values are resolved against the config file's directory.
	Workspace string `yaml:"workspace" toml:"workspace"`

	Sources   []SourceConfig  `yaml:"sources" toml:"sources" validate:"dive"`
	Backends  []BackendConfig `yaml:"backends" toml:"backends" validate:"dive"`
	Target    TargetConfig    `yaml:"target" toml:"target"`
	Resolve   ResolveConfig   `yaml:"resolve" toml:"resolve"`
	Execution ExecutionConfig `yaml:"execution" toml:"execution"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// CommandConfig is an external command.
type CommandConfig struct {
	Command string   `yaml:"command" toml:"command" validate:"required"`
	Args    []string `yaml:"args" toml:"args"`
	Timeout string   `yaml:"timeout" toml:"timeout"`
}

// SourceConfig configures a tool that reports issues.
type SourceConfig struct {
	Name       string   `yaml:"name" toml:"name" validate:"required"`
	Command    string   `yaml:"command" toml:"command" validate:"required"`
	Args       []string `yaml:"args" toml:"args"`
	Format     string   `yaml:"format" toml:"format" validate:"required,oneof=golangci-json ruff-json eslint-json gnu"`
	WorkingDir string   `yaml:"working_dir" toml:"working_dir"`
	Timeout    string   `yaml:"timeout" toml:"timeout"`
	IssueType  string   `yaml:"issue_type" toml:"issue_type"`

	// ValidityTest replaces re-listing issues as the check for a fix.
	ValidityTest *CommandConfig `yaml:"validity_test" toml:"validity_test"`
}

// BackendConfig configures one node of the backend chain. The order of
// Backends is the chain's priority order.
type BackendConfig struct {
	Name string `yaml:"name" toml:"name" validate:"required"`
	Kind string `yaml:"kind" toml:"kind" validate:"required,oneof=cache openai gemini command"`

	// openai, gemini
	Model             string  `yaml:"model" toml:"model"`
	BaseURL           string  `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKey            string  `yaml:"api_key" toml:"api_key"`
	Candidates        int     `yaml:"candidates" toml:"candidates" validate:"gte=0,lte=16"`
	Temperature       float32 `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	RequestsPerMinute int     `yaml:"requests_per_minute" toml:"requests_per_minute" validate:"gte=0"`
	Timeout           string  `yaml:"timeout" toml:"timeout"`

	// cache
	Path   string `yaml:"path" toml:"path"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=msgpack sqlite"`

	// command
	Command string   `yaml:"command" toml:"command"`
	Args    []string `yaml:"args" toml:"args"`
}

// TargetConfig selects where verified fixes go.
type TargetConfig struct {
	Kind          string       `yaml:"kind" toml:"kind" validate:"required,oneof=file git github"`
	CommitMessage string       `yaml:"commit_message" toml:"commit_message"`
	GitHub        GitHubConfig `yaml:"github" toml:"github"`
}

// GitHubConfig identifies the pull request suggestions are posted to.
type GitHubConfig struct {
	Owner      string `yaml:"owner" toml:"owner"`
	Repo       string `yaml:"repo" toml:"repo"`
	PullNumber int    `yaml:"pull_number" toml:"pull_number" validate:"gte=0"`
	CommitSHA  string `yaml:"commit_sha" toml:"commit_sha"`
	Token      string `yaml:"token" toml:"token"`
}

// ResolveConfig tunes the resolution loop.
type ResolveConfig struct {
	MaxHops      int             `yaml:"max_hops" toml:"max_hops" validate:"gte=0"`
	ContextLines int             `yaml:"context_lines" toml:"context_lines" validate:"gte=0"`
	Variants     []VariantConfig `yaml:"variants" toml:"variants" validate:"dive"`
	DryRun       bool            `yaml:"dry_run" toml:"dry_run"`
}

// VariantConfig is one proposal variant: a radius, the enclosing block, or
// an explicit line range. Exactly one form must be set.
type VariantConfig struct {
	Radius *int `yaml:"radius" toml:"radius" validate:"omitempty,gte=0"`
	Block  bool `yaml:"block" toml:"block"`
	Start  int  `yaml:"start" toml:"start" validate:"gte=0"`
	End    int  `yaml:"end" toml:"end" validate:"gte=0"`
}

// ExecutionConfig configures the command executor.
type ExecutionConfig struct {
	DefaultTimeout string   `yaml:"default_timeout" toml:"default_timeout"`
	MaxOutputBytes int64    `yaml:"max_output_bytes" toml:"max_output_bytes" validate:"gte=0"`
	AllowedEnvVars []string `yaml:"allowed_env_vars" toml:"allowed_env_vars"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=console json"`
	File   string `yaml:"file" toml:"file"`
}

// DefaultConfig returns the default configuration: go vet findings, an
// answer cache in front of OpenAI, fixes written to the working tree.
func DefaultConfig() *Config {
	return &Config{
		Workspace: ".",
		Sources: []SourceConfig{{
			Name:      "go-vet",
			Command:   "go",
			Args:      []string{"vet", "./..."},
			Format:    "gnu",
			Timeout:   "5m",
			IssueType: "warning",
		}},
		Backends: []BackendConfig{
			{
				Name:   "cache",
				Kind:   "cache",
				Path:   ".mend/cache.msgpack",
				Format: "msgpack",
			},
			{
				Name:       "openai",
				Kind:       "openai",
				Model:      "gpt-4o-mini",
				Candidates: 1,
				Timeout:    "120s",
			},
		},
		Target: TargetConfig{Kind: "file"},
		Resolve: ResolveConfig{
			MaxHops:      10,
			ContextLines: 20,
		},
		Execution: ExecutionConfig{
			DefaultTimeout: "10m",
			MaxOutputBytes: 16 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from path. YAML is assumed unless the file ends
// in .toml. A missing file yields the defaults. Environment overrides are
// applied and the result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.Workspace = filepath.Dir(path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		// Lists replace the defaults rather than merging with them.
		cfg.Sources, cfg.Backends = nil, nil
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if cfg.Workspace == "" {
			cfg.Workspace = "."
		}
		if !filepath.IsAbs(cfg.Workspace) {
			cfg.Workspace = filepath.Join(filepath.Dir(path), cfg.Workspace)
		}
	}

	// Issues, git and subprocesses all resolve paths against the
	// workspace, whatever the current directory is later.
	if cfg.Workspace, err = filepath.Abs(cfg.Workspace); err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides fills credentials from the environment. Keys already in
// the file win over OPENAI_API_KEY and GEMINI_API_KEY; MEND_LOG_LEVEL always
// wins.
func (c *Config) applyEnvOverrides() {
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.APIKey != "" {
			continue
		}
		switch b.Kind {
		case "openai":
			b.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			b.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" && c.Target.GitHub.Token == "" {
		c.Target.GitHub.Token = tok
	}
	if lvl := os.Getenv("MEND_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var errs []error
	names := make(map[string]bool)
	for _, s := range c.Sources {
		if names["source:"+s.Name] {
			errs = append(errs, fmt.Errorf("duplicate source %q", s.Name))
		}
		names["source:"+s.Name] = true
	}
	for _, b := range c.Backends {
		if names["backend:"+b.Name] {
			errs = append(errs, fmt.Errorf("duplicate backend %q", b.Name))
		}
		names["backend:"+b.Name] = true
		switch b.Kind {
		case "cache":
			if b.Path == "" {
				errs = append(errs, fmt.Errorf("backend %q: cache needs a path", b.Name))
			}
		case "command":
			if b.Command == "" {
				errs = append(errs, fmt.Errorf("backend %q: command backend needs a command", b.Name))
			}
		}
	}
	if c.Target.Kind == "github" {
		g := c.Target.GitHub
		if g.Owner == "" || g.Repo == "" || g.PullNumber == 0 || g.CommitSHA == "" {
			errs = append(errs, errors.New("github target needs owner, repo, pull_number and commit_sha"))
		}
		if g.Token == "" {
			errs = append(errs, errors.New("github target needs a token (set GITHUB_TOKEN)"))
		}
	}
	for i, v := range c.Resolve.Variants {
		forms := 0
		if v.Radius != nil {
			forms++
		}
		if v.Block {
			forms++
		}
		if v.Start != 0 || v.End != 0 {
			forms++
			if v.Start < 1 || v.End < v.Start {
				errs = append(errs, fmt.Errorf("variant %d: bad range %d-%d", i, v.Start, v.End))
			}
		}
		if forms != 1 {
			errs = append(errs, fmt.Errorf("variant %d: set exactly one of radius, block, start/end", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Source returns the named source.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Duration parses a duration field, returning def when it is empty or
// malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetExecutionTimeout returns the default command timeout.
func (c *Config) GetExecutionTimeout() time.Duration {
	return Duration(c.Execution.DefaultTimeout, 10*time.Minute)
}

// GetSourceTimeout returns the timeout for running s.
func (c *Config) GetSourceTimeout(s SourceConfig) time.Duration {
	return Duration(s.Timeout, c.GetExecutionTimeout())
}

// GetBackendTimeout returns the per-request timeout for b.
func (c *Config) GetBackendTimeout(b BackendConfig) time.Duration {
	return Duration(b.Timeout, 120*time.Second)
}
