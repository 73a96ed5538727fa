package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel           = "gemini-1.5-flash"
	defaultTemperature     = 0.7
	defaultMaxOutputTokens = 8192
	defaultTimeout         = 30 * time.Second
)

var (
	// ErrMissingAPIKey is a configuration error; no request is attempted.
	ErrMissingAPIKey = errors.New("generative: Gemini API key not set")
	// ErrEmptyResponse means the endpoint answered without candidate text.
	ErrEmptyResponse = errors.New("generative: no response text from Gemini API")
)

// TransportError wraps a failed or non-success call to the generative endpoint.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generative: Gemini API error: %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generative: Gemini API request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config is the explicit client configuration. The key is never read from
// ambient state.
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// TextGenerator is what the planner needs from a generative model.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

var _ TextGenerator = (*AIClient)(nil)

type AIClient struct {
	cfg    Config
	client *genai.Client
}

// NewAIClient builds a client from cfg. A missing key is not an error here:
// the client is still constructed and every call fails with ErrMissingAPIKey,
// so the service can start and report the misconfiguration per request.
func NewAIClient(ctx context.Context, cfg Config) (*AIClient, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	ai := &AIClient{cfg: cfg}
	if cfg.APIKey == "" {
		return ai, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	ai.client = client
	return ai, nil
}

func (ai *AIClient) Model() string {
	return ai.cfg.Model
}

// GenerationConfig returns the fixed generation parameters sent with every prompt.
func (ai *AIClient) GenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(ai.cfg.Temperature),
		MaxOutputTokens: ai.cfg.MaxOutputTokens,
	}
}

// GenerateContent sends prompt once and returns the text of the first
// candidate. There is no retry.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if ai.client == nil {
		return "", ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, ai.cfg.Timeout)
	defer cancel()

	resp, err := ai.client.Models.GenerateContent(ctx, ai.cfg.Model, genai.Text(prompt), ai.GenerationConfig())
	if err != nil {
		return "", toTransportError(err)
	}
	return firstCandidateText(resp)
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return "", ErrEmptyResponse
	}
	txt := c.Content.Parts[0].Text
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

func toTransportError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{StatusCode: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &TransportError{StatusCode: apiErrPtr.Code, Err: err}
	}
	return &TransportError{Err: err}
}
