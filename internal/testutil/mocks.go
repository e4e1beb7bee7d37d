// Package testutil provides deterministic stand-ins for the pipeline's
// collaborators: the model service, the query executor, and the context
// retriever.
package testutil

import (
	"context"
	"sync"

	"github.com/askdata/askdata/internal/dataset"
	"github.com/askdata/askdata/internal/docstore"
	"github.com/askdata/askdata/internal/llm"
)

// MockService implements llm.Service with scripted per-attempt outputs
type MockService struct {
	mu sync.Mutex

	outputs    []*llm.Output
	errs       []error
	prompts    []string
	callCounts map[string]int
}

// ServiceOption is a functional option for configuring MockService
type ServiceOption func(*MockService)

// WithOutput appends a scripted response for the next unscripted call
func WithOutput(output *llm.Output) ServiceOption {
	return func(m *MockService) {
		m.outputs = append(m.outputs, output)
		m.errs = append(m.errs, nil)
	}
}

// WithSQL is shorthand for a response carrying only a query
func WithSQL(sql string) ServiceOption {
	return WithOutput(&llm.Output{SQL: sql, Explanation: "generated query"})
}

// WithGenerateError appends a scripted failure for the next unscripted call
func WithGenerateError(err error) ServiceOption {
	return func(m *MockService) {
		m.outputs = append(m.outputs, nil)
		m.errs = append(m.errs, err)
	}
}

// NewMockService creates a mock model service with the given script
func NewMockService(opts ...ServiceOption) *MockService {
	mock := &MockService{
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Generate returns the next scripted output or error. Calls past the end
// of the script repeat the last entry.
func (m *MockService) Generate(_ context.Context, prompt string) (*llm.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.callCounts["Generate"]
	m.callCounts["Generate"]++
	m.prompts = append(m.prompts, prompt)

	if len(m.outputs) == 0 {
		return nil, llm.NewClientError(llm.ReasonEndpointUnavailable, "no scripted output")
	}

	if call >= len(m.outputs) {
		call = len(m.outputs) - 1
	}

	if m.errs[call] != nil {
		return nil, m.errs[call]
	}

	return m.outputs[call], nil
}

// Configure records the call and accepts any configuration
func (m *MockService) Configure(_ llm.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["Configure"]++

	return nil
}

// Prompts returns a copy of every prompt Generate received, in order
func (m *MockService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.prompts))
	copy(out, m.prompts)

	return out
}

// CallCount returns how many times the named method was invoked
func (m *MockService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCounts[method]
}

// MockExecutor implements dataset.Executor with per-SQL scripted results
type MockExecutor struct {
	mu sync.Mutex

	results    map[string]dataset.ExecutionResult
	fallback   dataset.ExecutionResult
	executed   []string
	callCounts map[string]int
}

// ExecutorOption is a functional option for configuring MockExecutor
type ExecutorOption func(*MockExecutor)

// WithResult maps a SQL string to a scripted execution result
func WithResult(sql string, result dataset.ExecutionResult) ExecutorOption {
	return func(m *MockExecutor) {
		m.results[sql] = result
	}
}

// WithSuccess maps a SQL string to a successful result set
func WithSuccess(sql string, columns []string, rows [][]any) ExecutorOption {
	return WithResult(sql, dataset.ExecutionResult{OK: true, Columns: columns, Rows: rows})
}

// WithFailure maps a SQL string to a classified failure
func WithFailure(sql string, class dataset.FailureClass, message string) ExecutorOption {
	return WithResult(sql, dataset.ExecutionResult{
		Failure: &dataset.ExecutionFailure{Message: message, Class: class},
	})
}

// WithFallback sets the result for SQL not covered by WithResult
func WithFallback(result dataset.ExecutionResult) ExecutorOption {
	return func(m *MockExecutor) {
		m.fallback = result
	}
}

// NewMockExecutor creates a mock executor with the given script. SQL with
// no mapping fails with a syntax error unless a fallback is set.
func NewMockExecutor(opts ...ExecutorOption) *MockExecutor {
	mock := &MockExecutor{
		results: make(map[string]dataset.ExecutionResult),
		fallback: dataset.ExecutionResult{
			Failure: &dataset.ExecutionFailure{
				Message: "no scripted result for query",
				Class:   dataset.FailureSyntax,
			},
		},
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Execute returns the scripted result for the given SQL
func (m *MockExecutor) Execute(_ context.Context, sqlText string) dataset.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["Execute"]++
	m.executed = append(m.executed, sqlText)

	if result, ok := m.results[sqlText]; ok {
		return result
	}

	return m.fallback
}

// Executed returns a copy of every SQL string Execute received, in order
func (m *MockExecutor) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.executed))
	copy(out, m.executed)

	return out
}

// CallCount returns how many times the named method was invoked
func (m *MockExecutor) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCounts[method]
}

// MockRetriever implements docstore.Retriever with fixed ranked chunks
type MockRetriever struct {
	mu sync.Mutex

	chunks     []docstore.Chunk
	callCounts map[string]int
}

// NewMockRetriever creates a retriever that always returns the given
// chunks, clipped to k.
func NewMockRetriever(chunks ...docstore.Chunk) *MockRetriever {
	return &MockRetriever{
		chunks:     chunks,
		callCounts: make(map[string]int),
	}
}

// Retrieve returns the configured chunks, at most k of them
func (m *MockRetriever) Retrieve(_ context.Context, _ string, k int) []docstore.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["Retrieve"]++

	if k <= 0 {
		return nil
	}

	if k > len(m.chunks) {
		k = len(m.chunks)
	}

	out := make([]docstore.Chunk, k)
	copy(out, m.chunks[:k])

	return out
}

// CallCount returns how many times the named method was invoked
func (m *MockRetriever) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCounts[method]
}
