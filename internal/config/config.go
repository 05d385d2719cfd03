// Package config handles configuration loading and management for Biomni.
// It supports XDG config paths, project-level overrides, and BIOMNI_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source selects which LLM backend the client talks to.
type Source string

const (
	// SourceAnthropic is the direct Anthropic API (key-based).
	SourceAnthropic Source = "anthropic"
	// SourceBedrock routes Anthropic models through AWS Bedrock using
	// the ambient AWS credential chain.
	SourceBedrock Source = "bedrock"
	// SourceCustom is an OpenAI-compatible serving endpoint reached via
	// a custom base URL.
	SourceCustom Source = "custom"
)

// Config holds all configuration for a Biomni agent process.
type Config struct {
	// Path is the data directory holding the resource catalog and the
	// transcript database.
	Path string `mapstructure:"path"`

	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Retriever RetrieverConfig `mapstructure:"retriever"`
	Harness   HarnessConfig   `mapstructure:"harness"`
}

// LLMConfig holds provider settings.
type LLMConfig struct {
	// Model is the model identifier (e.g. claude-sonnet-4-5).
	Model string `mapstructure:"model"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// Source selects anthropic, bedrock, or custom. Empty means
	// auto-detect: bedrock when an AWS region is set, anthropic otherwise.
	Source Source `mapstructure:"source"`
	// APIKey is the Anthropic API key (env ANTHROPIC_API_KEY wins).
	APIKey string `mapstructure:"api_key"`
	// BaseURL and CustomAPIKey configure a custom serving endpoint.
	BaseURL      string `mapstructure:"base_url"`
	CustomAPIKey string `mapstructure:"custom_api_key"`
	// AWSRegion, AWSProfile and MaxRetries configure the Bedrock path.
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// AgentConfig holds loop behavior settings.
type AgentConfig struct {
	// MaxIterations is the hard generate/execute ceiling per task.
	MaxIterations int `mapstructure:"max_iterations"`
	// ParseRetries is the budget for malformed-response recovery before
	// the run aborts.
	ParseRetries int `mapstructure:"parse_retries"`
	// SelfCritic enables the critique pass on proposed final answers.
	SelfCritic bool `mapstructure:"self_critic"`
	// CriticRounds caps how many times the critic may reject an answer.
	CriticRounds int `mapstructure:"critic_rounds"`
	// PromptBudget caps the tokens spent on resource descriptions in the
	// system prompt. Zero disables the cap.
	PromptBudget int `mapstructure:"prompt_budget"`
}

// RetrieverConfig holds resource-selection settings.
type RetrieverConfig struct {
	// Enabled toggles the LLM selection pass. When off, the assembler
	// sees the full catalog.
	Enabled bool `mapstructure:"enabled"`
	// Limit bounds the number of selected resources per category.
	Limit int `mapstructure:"limit"`
	// CommercialMode excludes non-commercially-licensed datasets.
	CommercialMode bool `mapstructure:"commercial_mode"`
}

// HarnessConfig holds execution settings.
type HarnessConfig struct {
	// Timeout is the per-execution wall-clock limit.
	Timeout time.Duration `mapstructure:"timeout"`
	// TimeoutSeconds is the integer-seconds form accepted from
	// BIOMNI_TIMEOUT_SECONDS; when set it overrides Timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// CaptureLimit caps captured bytes per stream before truncation.
	CaptureLimit int `mapstructure:"capture_limit"`
	// PythonCmd, RCmd and BashCmd override the interpreter command lines
	// (parsed shell-style, e.g. "python3 -u").
	PythonCmd string `mapstructure:"python_cmd"`
	RCmd      string `mapstructure:"r_cmd"`
	BashCmd   string `mapstructure:"bash_cmd"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
//  1. BIOMNI_* and provider environment variables
//  2. Project config (.biomni.yaml in the current directory or a parent)
//  3. User config (~/.config/biomni/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.applyOverrides()
	return cfg, nil
}

// applyOverrides resolves fields that arrive in more than one form.
func (c *Config) applyOverrides() {
	if c.Harness.TimeoutSeconds > 0 {
		c.Harness.Timeout = time.Duration(c.Harness.TimeoutSeconds) * time.Second
	}
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.applyOverrides()
	return cfg, nil
}

// bindEnv maps the BIOMNI_* environment surface onto config keys. The
// names mirror the original environment contract so existing .env files
// keep working.
func bindEnv(v *viper.Viper) {
	v.BindEnv("path", "BIOMNI_PATH", "BIOMNI_DATA_PATH")
	v.BindEnv("llm.model", "BIOMNI_LLM", "BIOMNI_LLM_MODEL")
	v.BindEnv("llm.temperature", "BIOMNI_TEMPERATURE")
	v.BindEnv("llm.source", "BIOMNI_SOURCE")
	v.BindEnv("llm.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.base_url", "BIOMNI_CUSTOM_BASE_URL")
	v.BindEnv("llm.custom_api_key", "BIOMNI_CUSTOM_API_KEY")
	v.BindEnv("llm.aws_region", "AWS_REGION", "AWS_DEFAULT_REGION")
	v.BindEnv("llm.aws_profile", "AWS_PROFILE")
	v.BindEnv("llm.max_retries", "BIOMNI_BEDROCK_MAX_RETRIES")
	v.BindEnv("agent.max_iterations", "BIOMNI_MAX_ITERATIONS")
	v.BindEnv("agent.self_critic", "BIOMNI_SELF_CRITIC")
	v.BindEnv("agent.prompt_budget", "BIOMNI_PROMPT_BUDGET")
	v.BindEnv("retriever.enabled", "BIOMNI_USE_TOOL_RETRIEVER")
	v.BindEnv("retriever.commercial_mode", "BIOMNI_COMMERCIAL_MODE")
	v.BindEnv("harness.timeout_seconds", "BIOMNI_TIMEOUT_SECONDS")
}

// ResolveSource returns the effective LLM source, applying auto-detection
// when none is configured.
func (c *Config) ResolveSource() Source {
	if c.LLM.Source != "" {
		return c.LLM.Source
	}
	if c.LLM.BaseURL != "" {
		return SourceCustom
	}
	if c.LLM.AWSRegion != "" {
		return SourceBedrock
	}
	return SourceAnthropic
}

// setDefaults configures default values matching the original defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("path", "./data")
	v.SetDefault("llm.model", "claude-sonnet-4-5")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 5)
	v.SetDefault("agent.max_iterations", 200)
	v.SetDefault("agent.parse_retries", 3)
	v.SetDefault("agent.self_critic", false)
	v.SetDefault("agent.critic_rounds", 2)
	v.SetDefault("agent.prompt_budget", 8192)
	v.SetDefault("retriever.enabled", true)
	v.SetDefault("retriever.limit", 25)
	v.SetDefault("retriever.commercial_mode", false)
	v.SetDefault("harness.timeout", 600*time.Second)
	v.SetDefault("harness.capture_limit", 64*1024)
	v.SetDefault("harness.python_cmd", "python3")
	v.SetDefault("harness.r_cmd", "Rscript")
	v.SetDefault("harness.bash_cmd", "bash")
}

// getUserConfigDir returns the XDG config directory for biomni.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "biomni")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "biomni")
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// findProjectConfig walks up from the current directory looking for a
// .biomni.yaml file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".biomni.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references, returning empty for unresolved
// references rather than the literal placeholder.
func expandEnv(s string) string {
	expanded := os.ExpandEnv(s)
	if strings.HasPrefix(expanded, "${") {
		return ""
	}
	return expanded
}
