package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// GenerativeLanguageBaseURL is the Google Generative Language API base URL
	GenerativeLanguageBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultGenerateTimeout bounds a single generateContent call
	DefaultGenerateTimeout = 120 * time.Second
	// DefaultModel is the default generation model
	DefaultModel = "gemini-2.5-flash"
)

// Client handles generateContent calls against the Generative Language API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
}

// Config holds configuration for the generation client
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Model   string
}

// NewClient creates a new generation client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = GenerativeLanguageBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultGenerateTimeout
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		model: config.Model,
	}
}

// Part is a single text fragment inside a content entry
type Part struct {
	Text string `json:"text"`
}

// Content is one conversation turn in the generateContent request
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// NewTextContent builds a single-part content entry
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// GenerationConfig tunes the sampling behavior of a request
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// generateRequest is the generateContent request body
type generateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is one generated completion
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata reports token usage for a request
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateResponse is the generateContent response body
type GenerateResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
}

// GenerateOption is a function that modifies the generation request
type GenerateOption func(*generateRequest)

// WithTemperature sets the sampling temperature for the request
func WithTemperature(temp float64) GenerateOption {
	return func(req *generateRequest) {
		if req.GenerationConfig == nil {
			req.GenerationConfig = &GenerationConfig{}
		}
		req.GenerationConfig.Temperature = &temp
	}
}

// WithMaxOutputTokens caps the response length
func WithMaxOutputTokens(tokens int) GenerateOption {
	return func(req *generateRequest) {
		if req.GenerationConfig == nil {
			req.GenerationConfig = &GenerationConfig{}
		}
		req.GenerationConfig.MaxOutputTokens = tokens
	}
}

// GenerateContent sends the full conversation and returns the model's reply
func (c *Client) GenerateContent(ctx context.Context, contents []Content, options ...GenerateOption) (*GenerateResponse, error) {
	req := generateRequest{
		Contents: contents,
	}

	for _, opt := range options {
		opt(&req)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("x-goog-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result GenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GenerateText is a convenience method that returns just the reply text
func (c *Client) GenerateText(ctx context.Context, contents []Content, options ...GenerateOption) (string, error) {
	resp, err := c.GenerateContent(ctx, contents, options...)
	if err != nil {
		return "", err
	}
	return resp.ExtractText(), nil
}

// HealthCheck verifies the generation API is reachable with the configured
// key. The request is deterministic and capped to keep it cheap; the
// response is returned so callers can report its token cost.
func (c *Client) HealthCheck(ctx context.Context) (*GenerateResponse, error) {
	contents := []Content{
		NewTextContent("user", "Say 'ok' if you can hear me."),
	}

	return c.GenerateContent(ctx, contents, WithTemperature(0), WithMaxOutputTokens(10))
}

// ExtractText extracts the first candidate's text from a response
func (r *GenerateResponse) ExtractText() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var text string
	for _, part := range r.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// GetUsage returns the token usage from the response
func (r *GenerateResponse) GetUsage() (prompt, candidates, total int) {
	return r.UsageMetadata.PromptTokenCount, r.UsageMetadata.CandidatesTokenCount, r.UsageMetadata.TotalTokenCount
}
