package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"actas/internal/services"
	"actas/internal/services/transcription"
)

// Mock is a deterministic in-process generation backend. Output is derived
// from the prompt and the transcription so tests can assert on it.
type Mock struct {
	// Delay simulates generation latency; zero in tests.
	Delay time.Duration
	// Fail forces every call to report a service failure.
	Fail bool
	// Scripted maps prompt substrings to fixed responses. The first match
	// wins; unmatched prompts fall back to a synthesized summary.
	Scripted map[string]string

	calls int
}

// NewMock returns a mock with sensible defaults.
func NewMock() *Mock {
	return &Mock{}
}

// Calls reports how many GenerateSegment calls completed or failed. Useful
// for asserting that a pass stopped at the first failure.
func (m *Mock) Calls() int {
	return m.calls
}

// GenerateSegment implements Service.
func (m *Mock) GenerateSegment(ctx context.Context, t *transcription.Transcription, prompt string) (string, error) {
	m.calls++
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrValidation, "generation", "segment", "prompt required", nil)
	}
	if t == nil {
		return "", services.Wrap(services.ErrValidation, "generation", "segment", "transcription required", nil)
	}
	if m.Fail {
		return "", services.Wrap(services.ErrExternalService, "generation", "segment", "mock failure requested", nil)
	}
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	for needle, response := range m.Scripted {
		if strings.Contains(strings.ToLower(prompt), strings.ToLower(needle)) {
			return response, nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%s)\n\n", orDefault(t.MeetingTitle, "Meeting"), orDefault(t.MeetingDate, "date unknown"))
	fmt.Fprintf(&b, "Generated for instruction: %s\n\n", prompt)
	for i, entry := range t.Dialogue {
		if i >= 3 {
			fmt.Fprintf(&b, "- ... and %d further interventions\n", len(t.Dialogue)-i)
			break
		}
		fmt.Fprintf(&b, "- Speaker %d: %s\n", entry.SpeakerID, entry.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
