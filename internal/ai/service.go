package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when the AI backend cannot be reached or
// refuses the request.
var ErrUnavailable = errors.New("ai service unavailable")

// Service produces structured JSON responses from natural-language prompts
type Service interface {
	// GenerateJSON sends the prompt and returns the raw JSON text of the
	// model's response, with any surrounding code fences stripped.
	GenerateJSON(ctx context.Context, prompt string) (string, error)

	// Model reports the configured model name
	Model() string
}

// StripCodeFences removes a leading/trailing markdown code fence from a
// model response. Models wrap JSON in ```json fences often enough that
// every caller needs this.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// serviceErr wraps backend faults so callers can test with errors.Is
func serviceErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
