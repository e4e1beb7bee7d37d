package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/askdata/askdata/internal/config"
)

func TestRootCommandStructure(t *testing.T) {
	root := RootCommand("test")

	assert.Equal(t, "askdata", root.Name)

	names := make(map[string]bool)
	for _, sub := range root.Commands {
		names[sub.Name] = true
	}

	for _, expected := range []string{"ask", "load", "index", "schema", "config"} {
		assert.True(t, names[expected], "missing subcommand %s", expected)
	}
}

func TestRootCommandBeforeCarriesConfig(t *testing.T) {
	t.Setenv("ASKDATA_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	root := RootCommand("test")
	root.Writer = io.Discard

	var got *config.Config

	root.Commands = append(root.Commands, &cli.Command{
		Name: "capture",
		Action: func(ctx context.Context, _ *cli.Command) error {
			got = getConfigFromContext(ctx)
			return nil
		},
	})

	require.NoError(t, root.Run(context.Background(), []string{"askdata", "capture"}))
	require.NotNil(t, got, "Before hook did not carry the config into the context")
	assert.Equal(t, "sample_sales_data", got.Database.Table)
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{"empty", "", "(not set)"},
		{"short", "abc123", "********"},
		{"long", "sk-abcdefghijklmnop", "sk-a...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.secret))
		})
	}
}

func TestTableNameFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/data/sales.csv", "sales"},
		{"orders-2024.csv", "orders_2024"},
		{"customer data.csv", "customer_data"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tableNameFromPath(tt.path))
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# Sales\n\nAmounts are in USD."), 0o644))

	text, err := readDocument(mdPath)
	require.NoError(t, err)
	assert.Contains(t, text, "Amounts are in USD.")

	htmlPath := filepath.Join(dir, "docs.html")
	require.NoError(t, os.WriteFile(htmlPath,
		[]byte("<html><body><h1>Columns</h1><p>The total column includes tax.</p></body></html>"),
		0o644))

	text, err = readDocument(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, text, "# Columns")
	assert.Contains(t, text, "The total column includes tax.")
	assert.NotContains(t, text, "<p>")
}

func TestReadDocumentMissingFile(t *testing.T) {
	_, err := readDocument("/nonexistent/file.md")
	assert.Error(t, err)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Database: config.DatabaseConfig{
			Path:            "", // in-memory
			Table:           "sample_sales_data",
			MaxConnections:  2,
			MaxIdleConns:    1,
			ConnMaxLifetime: "30m",
		},
		Vector: config.VectorConfig{
			Collection: "docs_collection",
			ChunkSize:  500,
		},
		LLM: config.LLMConfig{
			Provider: "ollama",
			Model:    "llama3",
			Timeout:  "60s",
		},
		Query: config.QueryConfig{
			MaxAttempts:      3,
			ContextTopK:      3,
			PromptSizeBudget: 12000,
			ExecutionTimeout: "30s",
		},
	}
}

func TestRunLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Order ID,Order_Status,Total\n1,Pending,10.5\n2,Shipped,20.0\n"), 0o644))

	ctx := context.WithValue(context.Background(), configContextKey, testConfig(t))

	require.NoError(t, runLoad(ctx, []string{csvPath}, ""))
}

func TestRunLoadRejectsTableFlagWithManyFiles(t *testing.T) {
	ctx := context.WithValue(context.Background(), configContextKey, testConfig(t))

	err := runLoad(ctx, []string{"a.csv", "b.csv"}, "shared")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--table")
}

func TestRunWithoutConfig(t *testing.T) {
	err := runLoad(context.Background(), []string{"a.csv"}, "")
	assert.Error(t, err)

	err = runSchema(context.Background(), "")
	assert.Error(t, err)
}
