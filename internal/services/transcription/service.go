package transcription

import (
	"context"

	"actas/internal/config"
)

// Service turns an audio recording plus meeting context into a transcription
// payload. Implementations must complete or fail in finite time; there is no
// streaming contract.
type Service interface {
	Transcribe(ctx context.Context, req Request) (*Transcription, error)
}

// NewFromConfig returns the HTTP-backed service when a base URL is
// configured, and the deterministic mock otherwise. The original deployment
// ships without a real backend, so the mock is the common case.
func NewFromConfig(cfg *config.Config) Service {
	if cfg != nil && cfg.Transcription.BaseURL != "" {
		return NewClient(ClientConfig{
			BaseURL:        cfg.Transcription.BaseURL,
			APIKey:         cfg.Transcription.APIKey,
			Model:          cfg.Transcription.Model,
			Diarization:    cfg.Transcription.Diarization,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		})
	}
	mock := NewMock()
	if cfg != nil {
		mock.Model = cfg.Transcription.Model
		mock.Diarization = cfg.Transcription.Diarization
		mock.Institution = cfg.Institution.Name
	}
	return mock
}
