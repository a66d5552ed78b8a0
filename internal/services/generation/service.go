package generation

import (
	"context"

	"actas/internal/config"
	"actas/internal/services/transcription"
)

// Service produces the content for one AI-typed template segment from a
// meeting transcription. Calls are made sequentially per document; the first
// failure aborts the pass.
type Service interface {
	GenerateSegment(ctx context.Context, t *transcription.Transcription, prompt string) (string, error)
}

// NewFromConfig returns the HTTP-backed service when an API key is
// configured, and the deterministic mock otherwise. The original deployment
// falls back to canned content whenever no key is present.
func NewFromConfig(cfg *config.Config) Service {
	if cfg != nil && cfg.Generation.APIKey != "" {
		return NewClient(ClientConfig{
			APIKey:         cfg.Generation.APIKey,
			BaseURL:        cfg.Generation.BaseURL,
			Model:          cfg.Generation.Model,
			Referer:        cfg.Generation.Referer,
			Title:          cfg.Generation.Title,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	}
	return NewMock()
}
