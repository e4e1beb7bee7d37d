package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askdata/askdata/internal/dataset"
)

func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:        "load",
		Usage:       "Load CSV files into the dataset store",
		Description: `Import one or more CSV files into the dataset store. Column names are normalized (spaces, dots, and dashes become underscores) so generated queries can reference them without quoting. Reloading a table replaces its contents.`,
		ArgsUsage:   " <csv-file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "table",
				Usage: "target table name (defaults to the configured table)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() == 0 {
				return fmt.Errorf("expected at least 1 CSV file, got none")
			}

			return runLoad(ctx, args.Slice(), cmd.String("table"))
		},
	}
}

func runLoad(ctx context.Context, csvPaths []string, tableName string) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	store, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Loading replaces the table, so a shared name across several files
	// would keep only the last one.
	if tableName != "" && len(csvPaths) > 1 {
		return fmt.Errorf("--table applies to a single CSV file, got %d", len(csvPaths))
	}

	var lastTable string

	for _, csvPath := range csvPaths {
		target := tableName
		if target == "" {
			if len(csvPaths) == 1 {
				target = cfg.Database.Table
			} else {
				target = tableNameFromPath(csvPath)
			}
		}

		rows, err := store.LoadTable(ctx, csvPath, target)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", csvPath, err)
		}

		fmt.Printf("Loaded %s into %s (%d rows)\n", csvPath, target, rows)

		lastTable = target
	}

	descriptor, err := store.Describe(ctx, lastTable)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", lastTable, err)
	}

	fmt.Println()
	fmt.Println(descriptor.Format())

	return nil
}

func tableNameFromPath(csvPath string) string {
	base := filepath.Base(csvPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return dataset.NormalizeColumnName(base)
}
