package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client implements the Service interface against OpenAI, Anthropic, or
// Ollama style endpoints over plain HTTP.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

// NewClient creates a new model client with the given configuration
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewClientWithTimeout creates a client with an explicit HTTP timeout
func NewClientWithTimeout(config Config, timeout time.Duration) *Client {
	c := NewClient(config)
	c.httpClient.Timeout = timeout

	return c
}

// Configure updates the client configuration
func (c *Client) Configure(config Config) error {
	if config.Provider == "" {
		return fmt.Errorf("provider is required")
	}

	if config.Model == "" {
		return fmt.Errorf("model is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for OpenAI provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.openai.com/v1"
		}
	case ProviderAnthropic:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for Anthropic provider")
		}

		if config.BaseURL == "" {
			config.BaseURL = "https://api.anthropic.com/v1"
		}
	case ProviderLocal, ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	c.config = config

	return nil
}

// Generate sends the composed prompt to the configured endpoint and parses
// the response into a typed Output. All failures come back as *ClientError.
func (c *Client) Generate(ctx context.Context, prompt string) (*Output, error) {
	if c.config.Provider == "" {
		return nil, NewClientError(ReasonEndpointUnavailable, "model client not configured")
	}

	switch c.config.Provider {
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt)
	case ProviderAnthropic:
		return c.generateAnthropic(ctx, prompt)
	case ProviderLocal, ProviderOllama:
		return c.generateOllama(ctx, prompt)
	default:
		return nil, NewClientError(ReasonEndpointUnavailable,
			"unsupported provider: %s", c.config.Provider)
	}
}

// parseOutput validates that the raw model text is a well-formed Output
func parseOutput(raw string) (*Output, error) {
	raw = stripCodeFence(raw)

	var output Output
	if err := json.Unmarshal([]byte(raw), &output); err != nil {
		return nil, NewClientError(ReasonMalformedResponse,
			"response is not valid JSON: %v", err)
	}

	if strings.TrimSpace(output.SQL) == "" {
		return nil, NewClientError(ReasonMalformedResponse,
			"response JSON is missing the sql field")
	}

	return &output, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit despite the JSON-only instruction.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}

// OpenAI API structures
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) generateOpenAI(ctx context.Context, prompt string) (*Output, error) {
	reqBody := openAIRequest{
		Model: c.config.Model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		MaxTokens:      1000,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}

	respBody, err := c.post(ctx, "/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, NewClientError(ReasonMalformedResponse,
			"failed to parse OpenAI response: %v", err)
	}

	if response.Error != nil {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return nil, NewClientError(ReasonMalformedResponse, "no response from OpenAI")
	}

	return parseOutput(response.Choices[0].Message.Content)
}

// Anthropic API structures
type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) generateAnthropic(ctx context.Context, prompt string) (*Output, error) {
	reqBody := anthropicRequest{
		Model:     c.config.Model,
		MaxTokens: 1000,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	respBody, err := c.post(ctx, "/messages", reqBody, map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return nil, err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, NewClientError(ReasonMalformedResponse,
			"failed to parse Anthropic response: %v", err)
	}

	if response.Error != nil {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"Anthropic API error: %s", response.Error.Message)
	}

	if len(response.Content) == 0 {
		return nil, NewClientError(ReasonMalformedResponse, "no response from Anthropic")
	}

	return parseOutput(response.Content[0].Text)
}

// Ollama API structures
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) generateOllama(ctx context.Context, prompt string) (*Output, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}

	respBody, err := c.post(ctx, "/api/generate", reqBody, nil)
	if err != nil {
		return nil, err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, NewClientError(ReasonMalformedResponse,
			"failed to parse Ollama response: %v", err)
	}

	if response.Error != "" {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"Ollama API error: %s", response.Error)
	}

	return parseOutput(response.Response)
}

// post makes an HTTP request to the configured endpoint and classifies
// transport failures into the ClientError taxonomy.
func (c *Client) post(
	ctx context.Context,
	endpoint string,
	reqBody interface{},
	headers map[string]string,
) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewClientError(ReasonMalformedResponse,
			"failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, NewClientError(ReasonTimeout, "request timed out: %v", err)
		}

		return nil, NewClientError(ReasonEndpointUnavailable,
			"failed to reach endpoint: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewClientError(ReasonEndpointUnavailable,
			"API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
