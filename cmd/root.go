// Package cmd wires the CLI commands to the dataset store, the context
// store, and the query pipeline.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/askdata/askdata/internal/config"
	"github.com/askdata/askdata/internal/dataset"
	"github.com/askdata/askdata/internal/docstore"
	"github.com/askdata/askdata/internal/errors"
	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/logging"
)

type contextKey string

const configContextKey contextKey = "askdata-config"

// RootCommand builds the top-level CLI command. Configuration is loaded
// once in the Before hook and carried to subcommands through the context.
func RootCommand(version string) *cli.Command {
	return &cli.Command{
		Name:    "askdata",
		Usage:   "Ask questions about a CSV dataset in plain language",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a JSON config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// The config file location is resolved through ASKDATA_CONFIG.
			if cmd.String("config") != "" {
				if err := os.Setenv("ASKDATA_CONFIG", cmd.String("config")); err != nil {
					return ctx, err
				}
			}

			overrides := map[string]interface{}{}
			if cmd.String("log-level") != "" {
				overrides["log-level"] = cmd.String("log-level")
			}

			cfg, err := config.LoadConfigWithOverrides(overrides)
			if err != nil {
				return ctx, err
			}

			if err := logging.InitializeLogger(cfg.Logging); err != nil {
				logging.SetupFallbackLogger()
				logging.WithError(err).Warnf("falling back to basic logging")
			}

			return context.WithValue(ctx, configContextKey, cfg), nil
		},
		Commands: []*cli.Command{
			AskCommand(),
			LoadCommand(),
			IndexCommand(),
			SchemaCommand(),
			ConfigCommand(),
		},
	}
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configContextKey).(*config.Config); ok {
		return cfg
	}

	return nil
}

func requireConfig(ctx context.Context) (*config.Config, error) {
	cfg := getConfigFromContext(ctx)
	if cfg == nil {
		return nil, errors.NewConfigError("failed to load configuration", "")
	}

	return cfg, nil
}

// openDataset creates the dataset store from configuration
func openDataset(cfg *config.Config) (*dataset.Store, error) {
	dbPath := config.ExpandPath(cfg.Database.Path)

	lifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		lifetime = 30 * time.Minute
	}

	store, err := dataset.NewStore(dbPath, dataset.Options{
		MaxConnections:  cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}

	return store, nil
}

// openDocstore creates the context store from configuration
func openDocstore(cfg *config.Config) (*docstore.Store, error) {
	path := config.ExpandPath(cfg.Vector.Path)
	embed := docstore.EmbeddingFromConfig(cfg.LLM)

	store, err := docstore.New(path, cfg.Vector.Collection, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open context store: %w", err)
	}

	return store, nil
}

// newModelClient creates the configured model client
func newModelClient(cfg *config.Config) (*llm.Client, error) {
	client := llm.NewClientWithTimeout(llm.Config{}, cfg.LLMTimeout())

	err := client.Configure(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure model client: %w", err)
	}

	return client, nil
}
