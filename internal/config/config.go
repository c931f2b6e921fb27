// Package config handles configuration loading for fabrica. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for fabrica.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Endpoint     string        `mapstructure:"endpoint"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	UseBedrock   bool          `mapstructure:"use_bedrock"`
	AWSRegion    string        `mapstructure:"aws_region"`
	AWSProfile   string        `mapstructure:"aws_profile"`
}

// RetryConfig holds provider retry settings.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// OutputConfig holds artifact output settings.
type OutputConfig struct {
	// Dir is the directory generated projects are written under.
	Dir string `mapstructure:"dir"`
	// Zip toggles writing a zip archive alongside the project tree.
	Zip bool `mapstructure:"zip"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, FABRICA_*)
// 2. Project config (.fabrica.yaml in current directory or parent)
// 3. User config (~/.config/fabrica/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("FABRICA")
	v.AutomaticEnv()
	v.BindEnv("provider.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("provider.model", "FABRICA_MODEL")
	v.BindEnv("output.dir", "FABRICA_OUTPUT_DIR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Provider.APIKey = os.ExpandEnv(cfg.Provider.APIKey)

	return cfg, nil
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

	cfg.Provider.APIKey = os.ExpandEnv(cfg.Provider.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("provider.model", cfg.Provider.Model)
	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.max_tokens", cfg.Provider.MaxTokens)
	v.Set("provider.endpoint", cfg.Provider.Endpoint)
	v.Set("provider.probe_timeout", cfg.Provider.ProbeTimeout.String())
	v.Set("provider.use_bedrock", cfg.Provider.UseBedrock)
	v.Set("provider.aws_region", cfg.Provider.AWSRegion)
	v.Set("provider.aws_profile", cfg.Provider.AWSProfile)
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("retry.initial_delay", cfg.Retry.InitialDelay.String())
	v.Set("output.dir", cfg.Output.Dir)
	v.Set("output.zip", cfg.Output.Zip)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// one exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.max_tokens", 4096)
	v.SetDefault("provider.endpoint", "api.anthropic.com:443")
	v.SetDefault("provider.probe_timeout", "5s")
	v.SetDefault("provider.use_bedrock", false)
	v.SetDefault("provider.aws_region", "")
	v.SetDefault("provider.aws_profile", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "1s")

	v.SetDefault("output.dir", "generated_projects")
	v.SetDefault("output.zip", false)
}

// getUserConfigDir returns the XDG config directory for fabrica.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fabrica")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "fabrica")
	}
	return filepath.Join(home, ".config", "fabrica")
}

// findProjectConfig searches for .fabrica.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".fabrica.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			MaxTokens:    4096,
			Endpoint:     "api.anthropic.com:443",
			ProbeTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
		},
		Output: OutputConfig{
			Dir: "generated_projects",
		},
	}
}
