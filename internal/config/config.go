// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Oracle    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	ActionLog ActionLogConfig `mapstructure:"action_log" yaml:"action_log"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig tunes the command execution loop.
type EngineConfig struct {
	// MaxSteps is the hard budget of observe-plan-act-verify cycles per command.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// ConfidenceThreshold is the minimum verification confidence that counts as
	// satisfied. Confidence strictly below it keeps the loop running.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	// SettleDelay is how long the page is left alone after an action before the
	// next observation.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	// ObservationTimeout bounds a single snapshot capture. On expiry the loop
	// proceeds with an empty snapshot instead of stalling.
	ObservationTimeout time.Duration `mapstructure:"observation_timeout" yaml:"observation_timeout"`
	// ActionTimeout bounds the execution of a single page action.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// NavigationTimeout bounds a page navigation before it is treated as a soft
	// success (the page may still be usable even if load never fired).
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	Args            []string       `mapstructure:"args" yaml:"args"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// ModelConfig defines the configuration for a single LLM.
type ModelConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// OracleConfig routes the two oracle roles onto concrete models: planning goes
// to the powerful model, verification to the fast one.
type OracleConfig struct {
	Fast     ModelConfig `mapstructure:"fast" yaml:"fast"`
	Powerful ModelConfig `mapstructure:"powerful" yaml:"powerful"`
}

// ActionLogConfig configures the append-only action log.
type ActionLogConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.max_steps", 5)
	v.SetDefault("engine.confidence_threshold", 0.7)
	v.SetDefault("engine.settle_delay", "2s")
	v.SetDefault("engine.observation_timeout", "5s")
	v.SetDefault("engine.action_timeout", "15s")
	v.SetDefault("engine.navigation_timeout", "10s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 800})

	// -- Oracle --
	v.SetDefault("oracle.fast.provider", "gemini")
	v.SetDefault("oracle.fast.model", "gemini-2.5-flash")
	v.SetDefault("oracle.fast.api_timeout", "30s")
	v.SetDefault("oracle.fast.requests_per_minute", 60.0)
	v.SetDefault("oracle.powerful.provider", "gemini")
	v.SetDefault("oracle.powerful.model", "gemini-2.5-pro")
	v.SetDefault("oracle.powerful.api_timeout", "60s")
	v.SetDefault("oracle.powerful.requests_per_minute", 30.0)

	// -- Action log --
	v.SetDefault("action_log.path", "pagepilot-actions.jsonl")
	v.SetDefault("action_log.max_size", 50)
	v.SetDefault("action_log.max_backups", 3)
	v.SetDefault("action_log.compress", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("oracle.fast.api_key", "PAGEPILOT_ORACLE_FAST_API_KEY", "PAGEPILOT_ORACLE_API_KEY")
	v.BindEnv("oracle.powerful.api_key", "PAGEPILOT_ORACLE_POWERFUL_API_KEY", "PAGEPILOT_ORACLE_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults must always validate.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// expandPaths resolves ~ in file paths so the rest of the code never has to.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.ActionLog.Path} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be a positive integer")
	}
	if c.Engine.ConfidenceThreshold < 0.0 || c.Engine.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("engine.confidence_threshold must be between 0.0 and 1.0")
	}
	if c.Engine.ObservationTimeout <= 0 {
		return fmt.Errorf("engine.observation_timeout must be a positive duration")
	}
	if c.Engine.NavigationTimeout <= 0 {
		return fmt.Errorf("engine.navigation_timeout must be a positive duration")
	}
	if c.Engine.SettleDelay < 0 {
		return fmt.Errorf("engine.settle_delay must not be negative")
	}
	for name, mc := range map[string]ModelConfig{"oracle.fast": c.Oracle.Fast, "oracle.powerful": c.Oracle.Powerful} {
		if err := mc.validate(); err != nil {
			return fmt.Errorf("%s configuration invalid: %w", name, err)
		}
	}
	return nil
}

func (m ModelConfig) validate() error {
	switch m.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported provider %q", m.Provider)
	}
	if m.Model == "" {
		return fmt.Errorf("model name is required")
	}
	if m.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	return nil
}
