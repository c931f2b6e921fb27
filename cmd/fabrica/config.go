package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrica-ai/fabrica/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify fabrica configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/fabrica/config.yaml
Project-specific overrides can be placed in .fabrica.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("provider.model: %s\n", cfg.Provider.Model)
	fmt.Printf("provider.api_key: %s\n", config.MaskAPIKey(cfg.Provider.APIKey))
	fmt.Printf("provider.max_tokens: %d\n", cfg.Provider.MaxTokens)
	fmt.Printf("provider.endpoint: %s\n", cfg.Provider.Endpoint)
	fmt.Printf("provider.probe_timeout: %s\n", cfg.Provider.ProbeTimeout)
	fmt.Printf("provider.use_bedrock: %t\n", cfg.Provider.UseBedrock)
	fmt.Printf("provider.aws_region: %s\n", cfg.Provider.AWSRegion)
	fmt.Printf("provider.aws_profile: %s\n", cfg.Provider.AWSProfile)
	fmt.Printf("retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("retry.initial_delay: %s\n", cfg.Retry.InitialDelay)
	fmt.Printf("output.dir: %s\n", cfg.Output.Dir)
	fmt.Printf("output.zip: %t\n", cfg.Output.Zip)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "provider.model":
		return cfg.Provider.Model, nil
	case "provider.api_key":
		return config.MaskAPIKey(cfg.Provider.APIKey), nil
	case "provider.max_tokens":
		return strconv.Itoa(cfg.Provider.MaxTokens), nil
	case "provider.endpoint":
		return cfg.Provider.Endpoint, nil
	case "provider.probe_timeout":
		return cfg.Provider.ProbeTimeout.String(), nil
	case "provider.use_bedrock":
		return strconv.FormatBool(cfg.Provider.UseBedrock), nil
	case "provider.aws_region":
		return cfg.Provider.AWSRegion, nil
	case "provider.aws_profile":
		return cfg.Provider.AWSProfile, nil
	case "retry.max_attempts":
		return strconv.Itoa(cfg.Retry.MaxAttempts), nil
	case "retry.initial_delay":
		return cfg.Retry.InitialDelay.String(), nil
	case "output.dir":
		return cfg.Output.Dir, nil
	case "output.zip":
		return strconv.FormatBool(cfg.Output.Zip), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "provider.model":
		cfg.Provider.Model = value
	case "provider.api_key":
		cfg.Provider.APIKey = value
	case "provider.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Provider.MaxTokens = n
	case "provider.endpoint":
		cfg.Provider.Endpoint = value
	case "provider.probe_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for probe_timeout: %w", err)
		}
		cfg.Provider.ProbeTimeout = d
	case "provider.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Provider.UseBedrock = b
	case "provider.aws_region":
		cfg.Provider.AWSRegion = value
	case "provider.aws_profile":
		cfg.Provider.AWSProfile = value
	case "retry.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_attempts: %w", err)
		}
		cfg.Retry.MaxAttempts = n
	case "retry.initial_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for initial_delay: %w", err)
		}
		cfg.Retry.InitialDelay = d
	case "output.dir":
		cfg.Output.Dir = value
	case "output.zip":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for output.zip: %w", err)
		}
		cfg.Output.Zip = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
