package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FailureClass categorizes why a generated query failed to execute
type FailureClass string

const (
	FailureSyntax     FailureClass = "syntax_error"
	FailureColumn     FailureClass = "unknown_column"
	FailureConstraint FailureClass = "constraint_violation"
	FailureOther      FailureClass = "other"
)

// ExecutionResult is a tagged variant: either OK with rows and columns, or a
// classified failure. A failed query is data, not a Go error.
type ExecutionResult struct {
	OK      bool
	Columns []string
	Rows    [][]any
	Failure *ExecutionFailure
}

// ExecutionFailure carries the database error text and its classification
type ExecutionFailure struct {
	Message string
	Class   FailureClass
}

func (f *ExecutionFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Class, f.Message)
}

// Executor runs generated SQL against the dataset
type Executor interface {
	Execute(ctx context.Context, sqlText string) ExecutionResult
}

// DuckDBExecutor implements Executor against a Store with a hard per-query
// timeout.
type DuckDBExecutor struct {
	store   *Store
	timeout time.Duration
}

// NewExecutor creates an executor over the given store. A zero timeout
// disables the per-query deadline.
func NewExecutor(store *Store, timeout time.Duration) *DuckDBExecutor {
	return &DuckDBExecutor{store: store, timeout: timeout}
}

// Execute validates and runs a single read-only query. Any failure,
// including the read-only rejection and the timeout, comes back as a
// classified ExecutionFailure.
func (e *DuckDBExecutor) Execute(ctx context.Context, sqlText string) ExecutionResult {
	if err := Validate(sqlText); err != nil {
		return failureResult(err.Error(), FailureOther)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, err := e.store.db.QueryContext(ctx, sqlText)
	if err != nil {
		return classifyError(err, e.timeout)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return classifyError(err, e.timeout)
	}

	var resultRows [][]any

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))

		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return classifyError(err, e.timeout)
		}

		resultRows = append(resultRows, values)
	}

	if err := rows.Err(); err != nil {
		return classifyError(err, e.timeout)
	}

	return ExecutionResult{OK: true, Columns: columns, Rows: resultRows}
}

func failureResult(message string, class FailureClass) ExecutionResult {
	return ExecutionResult{
		Failure: &ExecutionFailure{Message: message, Class: class},
	}
}

// classifyError maps DuckDB error text onto the failure taxonomy
func classifyError(err error, timeout time.Duration) ExecutionResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureResult(
			fmt.Sprintf("query exceeded the execution timeout of %s", timeout),
			FailureOther,
		)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "parser error"),
		strings.Contains(lower, "syntax error"):
		return failureResult(msg, FailureSyntax)
	case strings.Contains(lower, "referenced column"),
		strings.Contains(lower, "not found in from clause"),
		strings.Contains(lower, "does not have a column"),
		strings.Contains(lower, "column") && strings.Contains(lower, "not found"):
		return failureResult(msg, FailureColumn)
	case strings.Contains(lower, "constraint"):
		return failureResult(msg, FailureConstraint)
	default:
		return failureResult(msg, FailureOther)
	}
}
