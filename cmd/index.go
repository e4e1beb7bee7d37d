package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/urfave/cli/v3"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:        "index",
		Usage:       "Index documentation into the context store",
		Description: `Add documentation to the context store used to ground query generation. Markdown and plain-text files are chunked and embedded as-is; HTML files are converted to markdown first. With --from-table the rows of a dataset table are rendered and indexed instead, so questions can match on cell values.`,
		ArgsUsage:   " [<file>...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "chunk size in characters (defaults to the configured size)",
			},
			&cli.StringFlag{
				Name:  "from-table",
				Usage: "index the rows of this dataset table instead of files",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			fromTable := cmd.String("from-table")

			if args.Len() == 0 && fromTable == "" {
				return fmt.Errorf("expected files to index or --from-table")
			}

			return runIndex(ctx, args.Slice(), fromTable, cmd.Int("chunk-size"))
		},
	}
}

func runIndex(ctx context.Context, paths []string, fromTable string, chunkSize int) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	docs, err := openDocstore(cfg)
	if err != nil {
		return err
	}

	if chunkSize <= 0 {
		chunkSize = cfg.Vector.ChunkSize
	}

	for _, path := range paths {
		text, err := readDocument(path)
		if err != nil {
			return err
		}

		count, err := docs.IndexDocument(ctx, filepath.Base(path), text, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}

		fmt.Printf("Indexed %s (%d chunks)\n", path, count)
	}

	if fromTable != "" {
		store, err := openDataset(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		columns, rows, err := store.Rows(ctx, fromTable)
		if err != nil {
			return fmt.Errorf("failed to read table %s: %w", fromTable, err)
		}

		count, err := docs.IndexRows(ctx, fromTable, columns, rows, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to index rows from %s: %w", fromTable, err)
		}

		fmt.Printf("Indexed %d chunks from %d rows of %s\n", count, len(rows), fromTable)
	}

	fmt.Printf("Context store now holds %d chunks\n", docs.Count())

	return nil
}

// readDocument loads a file, converting HTML to markdown so the indexed
// text matches what a question would mention.
func readDocument(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		markdown, err := htmltomarkdown.ConvertString(string(raw))
		if err != nil {
			return "", fmt.Errorf("failed to convert %s to markdown: %w", path, err)
		}

		return markdown, nil
	}

	return string(raw), nil
}
