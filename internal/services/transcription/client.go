package transcription

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

	"actas/internal/services"
)

const defaultHTTPTimeout = 10 * time.Minute

// ClientConfig captures the runtime settings required to talk to the
// transcription backend.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Diarization    string
	TimeoutSeconds int
}

// Client calls an HTTP transcription backend that accepts the Request JSON
// and answers with a Transcription JSON.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: ClientConfig{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			Diarization:    strings.TrimSpace(cfg.Diarization),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe implements Service.
func (c *Client) Transcribe(ctx context.Context, req Request) (*Transcription, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "base url required", nil)
	}
	if strings.TrimSpace(req.AudioFileName) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio file required", nil)
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.Diarization == "" {
		req.Diarization = c.cfg.Diarization
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/transcriptions", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("transcription request: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "http error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarizeBody(body)), nil)
	}

	var payload Transcription
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "decode response", err)
	}
	if len(payload.Dialogue) == 0 {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "empty dialogue", nil)
	}
	return &payload, nil
}

func summarizeBody(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
