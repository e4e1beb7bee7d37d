package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/askdata/askdata/internal/dataset"
	"github.com/askdata/askdata/internal/docstore"
	"github.com/askdata/askdata/internal/pipeline"
	"github.com/askdata/askdata/internal/render"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:        "ask",
		Usage:       "Answer a question about the loaded dataset",
		Description: `Translate a plain-language question into SQL, run it against the loaded dataset, and print the answer. Failed queries are repaired and retried up to the configured attempt budget.`,
		ArgsUsage:   " <question>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top-k",
				Usage: "number of documentation chunks to retrieve (0 disables context)",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "override the configured attempt budget",
			},
			&cli.BoolFlag{
				Name:  "show-sql",
				Usage: "print the SQL of every attempt",
			},
			&cli.BoolFlag{
				Name:  "show-context",
				Usage: "print the retrieved documentation context",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() == 0 {
				return fmt.Errorf("expected a question, got no arguments")
			}

			question := strings.Join(args.Slice(), " ")

			return runAsk(ctx, question, askOptions{
				topK:        cmd.Int("top-k"),
				maxAttempts: cmd.Int("max-attempts"),
				showSQL:     cmd.Bool("show-sql"),
				showContext: cmd.Bool("show-context"),
			})
		},
	}
}

type askOptions struct {
	topK        int
	maxAttempts int
	showSQL     bool
	showContext bool
}

func runAsk(ctx context.Context, question string, opts askOptions) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	store, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	descriptor, err := store.Describe(ctx, cfg.Database.Table)
	if err != nil {
		return fmt.Errorf("no dataset loaded (run 'askdata load' first): %w", err)
	}

	docs, err := openDocstore(cfg)
	if err != nil {
		return err
	}

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}

	topK := cfg.Query.ContextTopK
	if opts.topK >= 0 {
		topK = opts.topK
	}

	maxAttempts := cfg.Query.MaxAttempts
	if opts.maxAttempts > 0 {
		maxAttempts = opts.maxAttempts
	}

	controller, err := pipeline.NewController(
		descriptor,
		client,
		dataset.NewExecutor(store, cfg.ExecutionTimeout()),
		docs,
		pipeline.Options{
			MaxAttempts:  maxAttempts,
			ContextTopK:  topK,
			PromptBudget: cfg.Query.PromptSizeBudget,
		},
	)
	if err != nil {
		return err
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr))
	spin.Suffix = " thinking..."
	spin.Start()

	answer, trace, err := controller.Run(ctx, question)

	spin.Stop()

	if err != nil {
		return fmt.Errorf("request cancelled: %w", err)
	}

	if opts.showContext {
		printContext(trace.Context)
	}

	if opts.showSQL {
		printAttempts(trace.Attempts)
	}

	fmt.Println(render.NewRenderer().Render(answer))

	return nil
}

// printContext prints the chunks the run actually prompted with, taken
// from the trace rather than retrieved again.
func printContext(chunks []docstore.Chunk) {
	if len(chunks) == 0 {
		fmt.Println("-- no documentation context retrieved")
		fmt.Println()

		return
	}

	for i, chunk := range chunks {
		fmt.Printf("-- context %d (similarity %.3f)\n%s\n", i+1, chunk.Similarity, chunk.Content)
	}

	fmt.Println()
}

func printAttempts(attempts []pipeline.Attempt) {
	for _, attempt := range attempts {
		fmt.Printf("-- attempt %d", attempt.Index+1)

		if attempt.Err != nil {
			fmt.Printf(" (%s: %s)", attempt.Err.Stage, attempt.Err.Class)
		}

		fmt.Println()

		if attempt.SQL != "" {
			fmt.Println(attempt.SQL)
		} else {
			fmt.Println("(no query produced)")
		}
	}

	fmt.Println()
}
