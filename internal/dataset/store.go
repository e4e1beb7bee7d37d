package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/askdata/askdata/internal/schema"
)

// Store wraps an embedded DuckDB database holding the tabular dataset
type Store struct {
	db   *sql.DB
	path string
}

// Options configures the connection pool
type Options struct {
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions returns the default pool configuration
func DefaultOptions() Options {
	return Options{
		MaxConnections:  10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// NewStore opens (or creates) a DuckDB database at the given path. An empty
// path opens an in-memory database.
func NewStore(dbPath string, opts Options) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxConnections)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// DB exposes the underlying handle for components that prepare statements
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// identQuote quotes an identifier for DuckDB
func identQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadTable ingests a CSV file into the named table, replacing any previous
// contents. Column names are canonicalized: spaces, dots, and dashes become
// underscores.
func (s *Store) LoadTable(ctx context.Context, csvPath, tableName string) (int64, error) {
	if !tableNamePattern.MatchString(tableName) {
		return 0, fmt.Errorf("invalid table name: %s", tableName)
	}

	if _, err := os.Stat(csvPath); err != nil {
		return 0, fmt.Errorf("cannot read csv file: %w", err)
	}

	createSQL := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(?)",
		identQuote(tableName),
	)
	if _, err := s.db.ExecContext(ctx, createSQL, csvPath); err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", csvPath, err)
	}

	if err := s.normalizeColumnNames(ctx, tableName); err != nil {
		return 0, err
	}

	var rowCount int64

	countSQL := fmt.Sprintf("SELECT count(*) FROM %s", identQuote(tableName))
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&rowCount); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	return rowCount, nil
}

// NormalizeColumnName canonicalizes a CSV header into an identifier:
// spaces, dots, and dashes become underscores.
func NormalizeColumnName(name string) string {
	replacer := strings.NewReplacer(" ", "_", ".", "_", "-", "_")
	return replacer.Replace(name)
}

func (s *Store) normalizeColumnNames(ctx context.Context, tableName string) error {
	names, err := s.columnNames(ctx, tableName)
	if err != nil {
		return err
	}

	for _, name := range names {
		normalized := NormalizeColumnName(name)
		if normalized == name {
			continue
		}

		renameSQL := fmt.Sprintf(
			"ALTER TABLE %s RENAME COLUMN %s TO %s",
			identQuote(tableName), identQuote(name), identQuote(normalized),
		)
		if _, err := s.db.ExecContext(ctx, renameSQL); err != nil {
			return fmt.Errorf("failed to rename column %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) columnNames(ctx context.Context, tableName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Describe introspects the named table into a schema Descriptor
func (s *Store) Describe(ctx context.Context, tableName string) (*schema.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect table %s: %w", tableName, err)
	}
	defer rows.Close()

	desc := &schema.Descriptor{Table: tableName}

	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		desc.Columns = append(desc.Columns, schema.Column{
			Name:     name,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(desc.Columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist or has no columns", tableName)
	}

	return desc, nil
}

// Tables lists the user tables currently present in the database
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Rows exports the full contents of a table, used when indexing dataset rows
// into the documentation store.
func (s *Store) Rows(ctx context.Context, tableName string) ([]string, [][]any, error) {
	if !tableNamePattern.MatchString(tableName) {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s", identQuote(tableName)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var result [][]any

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result = append(result, values)
	}

	return columns, result, rows.Err()
}
