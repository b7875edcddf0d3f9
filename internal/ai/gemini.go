package ai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const (
	// DefaultModel is used when MEMGRAPH_GEMINI_MODEL is not set
	DefaultModel = "gemini-2.0-flash"
)

// GeminiService implements Service on top of the Gemini API
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService creates a Gemini-backed service with an explicit key
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiService{client: client, model: model}, nil
}

// NewFromEnv creates a Gemini service from environment variables.
// Returns (nil, nil) when GEMINI_API_KEY is unset: AI-backed operations
// then run their deterministic fallbacks instead.
func NewFromEnv(ctx context.Context) (Service, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, nil
	}

	svc, err := NewGeminiService(ctx, apiKey, os.Getenv("MEMGRAPH_GEMINI_MODEL"))
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Model reports the configured model name
func (s *GeminiService) Model() string {
	return s.model
}

// GenerateJSON sends the prompt with a JSON response MIME type and returns
// the response text with code fences stripped
func (s *GeminiService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", serviceErr(err)
	}

	text := resp.Text()
	if text == "" {
		return "", serviceErr(errors.New("empty response"))
	}
	return StripCodeFences(text), nil
}
