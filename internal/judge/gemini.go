package judge

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"contextprime/internal/logging"
)

// DefaultModel is a fast model suited to priming steps, where latency
// matters more than depth.
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout bounds a single judge call.
const DefaultTimeout = 60 * time.Second

// GeminiJudge answers prompts through the Google GenAI API.
type GeminiJudge struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// GeminiConfig configures a GeminiJudge.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGemini creates a judge backed by Gemini.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiJudge{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends one prompt and returns the concatenated text response.
func (j *GeminiJudge) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.client.Models.GenerateContent(ctx, j.model,
		genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	text := result.Text()
	logging.Get(logging.CategoryJudge).Debugw("judge call complete",
		"model", j.model,
		"prompt_chars", len(prompt),
		"response_chars", len(text),
		"elapsed", time.Since(start))

	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
