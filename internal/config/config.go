// Package config loads the tool configuration. A graphshift.local.yaml next
// to the project takes precedence over graphshift.yaml, so per-developer
// overrides never need committing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete tool configuration.
type Config struct {
	Backend  string `mapstructure:"backend"` // "anthropic" or "relay"
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"apiKey"`
	Endpoint string `mapstructure:"endpoint"`

	MaxFiles      int `mapstructure:"maxFiles"`
	Workers       int `mapstructure:"workers"`
	MaxTokens     int `mapstructure:"maxTokens"`
	ContextBudget int `mapstructure:"contextBudget"`

	RequestsPerSecond  float64 `mapstructure:"requestsPerSecond"`
	MaxConcurrentCalls int     `mapstructure:"maxConcurrentCalls"`

	CompileCheck bool   `mapstructure:"compileCheck"`
	DotnetPath   string `mapstructure:"dotnetPath"`

	RoadmapPath  string `mapstructure:"roadmapPath"`
	DatabasePath string `mapstructure:"databasePath"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Backend:            "anthropic",
		MaxFiles:           500,
		Workers:            4,
		MaxTokens:          4096,
		RequestsPerSecond:  2,
		MaxConcurrentCalls: 3,
		CompileCheck:       true,
	}
}

// Load reads configuration for a project root. graphshift.local.yaml wins
// over graphshift.yaml; GRAPHSHIFT_* environment variables win over both.
func Load(root string) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("maxFiles", d.MaxFiles)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("maxTokens", d.MaxTokens)
	v.SetDefault("requestsPerSecond", d.RequestsPerSecond)
	v.SetDefault("maxConcurrentCalls", d.MaxConcurrentCalls)
	v.SetDefault("compileCheck", d.CompileCheck)

	v.SetEnvPrefix("GRAPHSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	name := "graphshift"
	if _, err := os.Stat(filepath.Join(root, "graphshift.local.yaml")); err == nil {
		name = "graphshift.local"
	}
	v.SetConfigName(name)
	v.AddConfigPath(root)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s.yaml: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case "anthropic", "relay":
	default:
		return fmt.Errorf("config error in field 'backend': must be \"anthropic\" or \"relay\" (got %q)", c.Backend)
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("config error in field 'maxFiles': must be >= 0")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error in field 'workers': must be >= 0")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("config error in field 'requestsPerSecond': must be >= 0")
	}
	return nil
}
