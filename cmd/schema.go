package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Display the schema of loaded tables",
		Description: `Show the tables in the dataset store and their columns, as presented to the model during query generation.`,
		ArgsUsage:   " [<table>]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() > 1 {
				return fmt.Errorf("expected at most 1 table name, got %d", args.Len())
			}

			return runSchema(ctx, args.First())
		},
	}
}

func runSchema(ctx context.Context, tableName string) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	store, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tables := []string{tableName}

	if tableName == "" {
		tables, err = store.Tables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}

		if len(tables) == 0 {
			fmt.Println("No tables loaded. Run 'askdata load' first.")
			return nil
		}
	}

	for i, table := range tables {
		descriptor, err := store.Describe(ctx, table)
		if err != nil {
			return fmt.Errorf("failed to describe %s: %w", table, err)
		}

		if i > 0 {
			fmt.Println()
		}

		fmt.Println(descriptor.Format())
	}

	return nil
}
