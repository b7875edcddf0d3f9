// Package ai wraps the Gemini client behind a narrow Service interface.
//
// Callers treat the service as optional: NewFromEnv returns nil (not an
// error) when no API key is configured, and AI-dependent graph operations
// degrade to deterministic behavior whenever the service is nil or a call
// fails. Only the graph manager decides what those fallbacks look like;
// this package just produces prompt -> JSON text.
package ai
