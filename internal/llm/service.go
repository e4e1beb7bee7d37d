package llm

import (
	"context"
	"fmt"
)

// Service defines the interface for structured SQL generation. The single
// capability — given a composed prompt, return a typed output or a typed
// error — keeps the retry controller testable with deterministic stubs.
type Service interface {
	Generate(ctx context.Context, prompt string) (*Output, error)
	Configure(config Config) error
}

// Config represents model endpoint configuration
type Config struct {
	Provider string            `json:"provider"` // openai, anthropic, ollama
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

// Output is the parsed, shape-validated result of one model call
type Output struct {
	SQL         string     `json:"sql"`
	Explanation string     `json:"explanation"`
	Chart       *ChartHint `json:"chart,omitempty"`
}

// ChartHint carries the model's optional chart directive
type ChartHint struct {
	Kind   string `json:"kind"` // bar, line, pie
	XField string `json:"x_field"`
	YField string `json:"y_field"`
	Title  string `json:"title,omitempty"`
}

// ErrorReason distinguishes why a model call failed
type ErrorReason string

const (
	ReasonMalformedResponse   ErrorReason = "malformed_response"
	ReasonEndpointUnavailable ErrorReason = "endpoint_unavailable"
	ReasonTimeout             ErrorReason = "timeout"
)

// ClientError is the typed failure of a model call. It is recoverable: the
// retry controller records it and tries again within the attempt budget.
type ClientError struct {
	Reason  ErrorReason
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("model client error (%s): %s", e.Reason, e.Message)
}

// NewClientError creates a ClientError with a formatted message
func NewClientError(reason ErrorReason, format string, args ...interface{}) *ClientError {
	return &ClientError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// Provider constants for the supported endpoints
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderLocal     = "local"
)

// Model constants for common models
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT4o     = "gpt-4o"
	ModelClaude    = "claude-3-5-sonnet-20241022"
	ModelLlama3    = "llama3"
)
