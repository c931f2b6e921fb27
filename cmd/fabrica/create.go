package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fabrica-ai/fabrica/internal/artifact"
	"github.com/fabrica-ai/fabrica/internal/coder"
	"github.com/fabrica-ai/fabrica/internal/config"
	"github.com/fabrica-ai/fabrica/internal/orchestrator"
	"github.com/fabrica-ai/fabrica/internal/planner"
	"github.com/fabrica-ai/fabrica/internal/provider"
)

var (
	createType    string
	createOutput  string
	createZip     bool
	createModel   string
	createBedrock bool
)

var createCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Generate a project from a description",
	Long: `Generate a complete project from a plain-text description.

The description is decomposed into tasks by the planner, each task is
implemented by the coder in dependency order, and the finished project
is written under the output directory.

Examples:
  fabrica create "a flask todo app with sqlite storage"
  fabrica create --type cli "a markdown to html converter"
  fabrica create --zip "a snake game with pygame"`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createType, "type", "python", "Project type hint passed to the planner")
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "Output directory (default from config)")
	createCmd.Flags().BoolVar(&createZip, "zip", false, "Also write a zip archive of the project")
	createCmd.Flags().StringVar(&createModel, "model", "", "Model override")
	createCmd.Flags().BoolVar(&createBedrock, "bedrock", false, "Route calls through AWS Bedrock")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if createOutput != "" {
		cfg.Output.Dir = createOutput
	}
	if createZip {
		cfg.Output.Zip = true
	}
	if createModel != "" {
		cfg.Provider.Model = createModel
	}
	if createBedrock {
		cfg.Provider.UseBedrock = true
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	writer := artifact.NewWriter(cfg.Output.Dir, cfg.Output.Zip)
	orch := orchestrator.New(
		planner.New(client),
		coder.New(client),
		orchestrator.WithArchiver(writer),
		orchestrator.WithTokenTracker(client.Tracker()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Planning tasks...")
	view, err := orch.CreateProject(ctx, args[0], createType)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	fmt.Printf("Project %s: %d tasks\n\n", view.ProjectID, view.TotalTasks)
	for _, t := range view.Tasks {
		fmt.Printf("  %d. %s\n", t.ID, t.Description)
	}
	fmt.Println()

	for {
		next, err := orch.NextRunnable(view.ProjectID)
		if err != nil {
			return err
		}
		if next == nil {
			break
		}

		fmt.Printf("Generating task %d: %s\n", next.ID, next.Description)
		result, err := orch.GenerateTaskCode(ctx, view.ProjectID, next.ID)
		if err != nil {
			printStatus("✗", fmt.Sprintf("Task %d failed: %v", next.ID, err), color.FgRed)
			break
		}
		printStatus("✓", fmt.Sprintf("Task %d produced %d file(s)", next.ID, len(result.Files)), color.FgGreen)
	}

	final, err := orch.GetProject(view.ProjectID)
	if err != nil {
		return err
	}

	fmt.Println()
	switch {
	case final.Status.Terminal() && final.Failed == 0:
		printStatus("✓", fmt.Sprintf("Project completed: %d/%d tasks", final.Completed, final.TotalTasks), color.FgGreen)
		fmt.Printf("Output written under %s\n", cfg.Output.Dir)
	default:
		printStatus("✗", fmt.Sprintf("Project %s: %d completed, %d failed", final.Status, final.Completed, final.Failed), color.FgRed)
	}

	in, out := client.Tracker().Total()
	fmt.Printf("Tokens: %d in / %d out (~$%.4f) across %d call(s)\n",
		in, out, client.Tracker().Cost(), client.Tracker().Calls())

	if final.Status.Terminal() && final.Failed == 0 {
		return nil
	}
	return fmt.Errorf("project did not complete")
}

func buildClient(cfg *config.Config) (*provider.Client, error) {
	clientCfg := provider.ClientConfig{
		Model:         anthropic.Model(cfg.Provider.Model),
		MaxTokens:     int64(cfg.Provider.MaxTokens),
		UseAWSBedrock: cfg.Provider.UseBedrock,
		AWSRegion:     cfg.Provider.AWSRegion,
		AWSProfile:    cfg.Provider.AWSProfile,
		Endpoint:      cfg.Provider.Endpoint,
		ProbeTimeout:  cfg.Provider.ProbeTimeout,
		Retry: provider.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
		},
	}

	if !cfg.Provider.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("set ANTHROPIC_API_KEY or provider.api_key in %s: %w",
				config.GetUserConfigPath(), err)
		}
		clientCfg.APIKey = key
	}

	client, err := provider.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating provider client: %w", err)
	}
	return client, nil
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
