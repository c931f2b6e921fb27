package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrica-ai/fabrica/internal/artifact"
	"github.com/fabrica-ai/fabrica/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show generated projects and configuration",
	Long: `Display the projects fabrica has generated so far.

Shows:
  - Generated projects from the output directory index
  - The active provider configuration`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	writer := artifact.NewWriter(cfg.Output.Dir, cfg.Output.Zip)
	entries, err := writer.Index()
	if err != nil {
		return fmt.Errorf("reading project index: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No generated projects. Run 'fabrica create <description>' to start.")
	} else {
		fmt.Printf("Generated projects (%d):\n", len(entries))
		for _, e := range entries {
			fmt.Printf("  %s: %d file(s), %s ago\n", e.Name, len(e.Files), formatDuration(time.Since(e.CreatedAt)))
		}
	}

	fmt.Println()
	model := cfg.Provider.Model
	if model == "" {
		model = "(default)"
	}
	fmt.Printf("Provider: model=%s bedrock=%t endpoint=%s\n", model, cfg.Provider.UseBedrock, cfg.Provider.Endpoint)
	fmt.Printf("API key: %s (%s)\n", config.MaskAPIKey(cfg.Provider.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("Output: %s\n", cfg.Output.Dir)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
