package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"actas/internal/document"
	"actas/internal/services"
	"actas/internal/services/transcription"
)

// Store is the persistence the session layer needs. The SQLite store
// satisfies it.
type Store interface {
	SaveWizardSession(ctx context.Context, documentID, userID, stateJSON string) error
	GetWizardSession(ctx context.Context, userID, documentID string) (string, bool, error)
	ListWizardSessions(ctx context.Context, userID string) ([]string, error)
	DeleteWizardSession(ctx context.Context, userID, documentID string) (bool, error)
}

// Snapshot is the durable form of in-progress wizard work, keyed by the
// document it belongs to. AudioPath is deliberately excluded from
// serialization: the recording itself never enters durable state, only its
// file name does.
type Snapshot struct {
	Step       int    `json:"step"`
	DocumentID string `json:"document_id,omitempty"`

	Title        string `json:"title,omitempty"`
	MeetingDate  string `json:"meeting_date,omitempty"`
	SessionType  string `json:"session_type,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Observations string `json:"observations,omitempty"`

	AudioPath     string `json:"-"`
	AudioFileName string `json:"audio_file_name,omitempty"`

	Speakers         []transcription.Speaker `json:"speakers,omitempty"`
	AudioEnhancement bool                    `json:"audio_enhancement,omitempty"`

	TranscriptionModel string                       `json:"transcription_model,omitempty"`
	DiarizationModel   string                       `json:"diarization_model,omitempty"`
	Transcription      *transcription.Transcription `json:"transcription,omitempty"`

	TemplateID string             `json:"template_id,omitempty"`
	Sections   []document.Section `json:"sections,omitempty"`

	SavedAt time.Time `json:"saved_at"`
}

// Manager saves and restores wizard snapshots.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager wires the session layer over its persistence.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the manager's time source. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Save persists the snapshot under its document id, replacing any previous
// one for that document.
func (m *Manager) Save(ctx context.Context, userID string, snap Snapshot) error {
	if snap.DocumentID == "" {
		return services.Wrap(services.ErrValidation, "session", "save", "document id required", nil)
	}
	snap.SavedAt = m.now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	return m.store.SaveWizardSession(ctx, snap.DocumentID, userID, string(data))
}

// Load returns the snapshot a user stored for a document, if any.
func (m *Manager) Load(ctx context.Context, userID, documentID string) (*Snapshot, bool, error) {
	raw, found, err := m.store.GetWizardSession(ctx, userID, documentID)
	if err != nil || !found {
		return nil, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	return &snap, true, nil
}

// List returns every snapshot a user has stored, most recently saved first.
func (m *Manager) List(ctx context.Context, userID string) ([]Snapshot, error) {
	raws, err := m.store.ListWizardSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(raws))
	for _, raw := range raws {
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Clear removes the snapshot a user stored for a document.
func (m *Manager) Clear(ctx context.Context, userID, documentID string) (bool, error) {
	return m.store.DeleteWizardSession(ctx, userID, documentID)
}
