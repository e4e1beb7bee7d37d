package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file and environment variables.`,
		Action:      runConfig,
	}
}

func runConfig(ctx context.Context, _ *cli.Command) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	fmt.Println("====================")
	fmt.Println("Active Configuration:")

	fmt.Println("\nDatabase:")
	fmt.Printf("  Path: %s\n", cfg.Database.Path)
	fmt.Printf("  Table: %s\n", cfg.Database.Table)
	fmt.Printf("  Max Connections: %d\n", cfg.Database.MaxConnections)

	fmt.Println("\nContext Store:")
	fmt.Printf("  Path: %s\n", cfg.Vector.Path)
	fmt.Printf("  Collection: %s\n", cfg.Vector.Collection)
	fmt.Printf("  Chunk Size: %d\n", cfg.Vector.ChunkSize)

	fmt.Println("\nModel:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s\n", cfg.LLM.Model)
	fmt.Printf("  API Key: %s\n", maskSecret(cfg.LLM.APIKey))

	if cfg.LLM.BaseURL != "" {
		fmt.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	}

	fmt.Printf("  Timeout: %s\n", cfg.LLM.Timeout)

	fmt.Println("\nQuery:")
	fmt.Printf("  Max Attempts: %d\n", cfg.Query.MaxAttempts)
	fmt.Printf("  Context Top K: %d\n", cfg.Query.ContextTopK)
	fmt.Printf("  Prompt Size Budget: %d\n", cfg.Query.PromptSizeBudget)
	fmt.Printf("  Execution Timeout: %s\n", cfg.Query.ExecutionTimeout)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	return nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}

	if len(secret) <= 8 {
		return "********"
	}

	return secret[:4] + "..." + secret[len(secret)-4:]
}
