package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"actas/internal/services"
	"actas/internal/services/transcription"
	"actas/internal/session"
	"actas/internal/testsupport"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return session.NewManager(st)
}

func TestSaveStripsAudioPath(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	err := m.Save(ctx, "u1", session.Snapshot{
		Step:          3,
		DocumentID:    "d1",
		AudioPath:     "/tmp/uploads/session.mp3",
		AudioFileName: "session.mp3",
		Title:         "Budget Session",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, found, err := m.Load(ctx, "u1", "d1")
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if snap.AudioPath != "" {
		t.Fatalf("audio path must not persist, got %q", snap.AudioPath)
	}
	if snap.AudioFileName != "session.mp3" {
		t.Fatalf("audio file name = %q", snap.AudioFileName)
	}
	if snap.Step != 3 || snap.Title != "Budget Session" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.SavedAt.IsZero() {
		t.Fatal("SavedAt not stamped")
	}
}

func TestSaveRequiresDocumentID(t *testing.T) {
	m := newManager(t)
	err := m.Save(context.Background(), "u1", session.Snapshot{Step: 2})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Save without document id = %v, want ErrValidation", err)
	}
}

func TestSnapshotsKeyedByDocument(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	if err := m.Save(ctx, "u1", session.Snapshot{Step: 2, DocumentID: "d1", Title: "First"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Save(ctx, "u1", session.Snapshot{Step: 5, DocumentID: "d2", Title: "Second", AudioFileName: "b.mp3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Progress on one document must not shadow another.
	snap, found, err := m.Load(ctx, "u1", "d1")
	if err != nil || !found || snap.Title != "First" {
		t.Fatalf("d1 = %+v, found %v, err %v", snap, found, err)
	}
	snap, found, err = m.Load(ctx, "u1", "d2")
	if err != nil || !found || snap.Title != "Second" {
		t.Fatalf("d2 = %+v, found %v, err %v", snap, found, err)
	}

	resume, err := m.Evaluate(ctx, "u1", "d1", 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resume.Prompt {
		t.Fatal("d1 at its initial step must not prompt off d2's progress")
	}

	snaps, err := m.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 1 || snaps[0].DocumentID != "d2" {
		t.Fatalf("sessions after evaluate = %+v", snaps)
	}
}

func TestEvaluateDiscardsTrivialSnapshots(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	resume, err := m.Evaluate(ctx, "u1", "d1", 1)
	if err != nil {
		t.Fatalf("Evaluate(empty): %v", err)
	}
	if resume.Prompt {
		t.Fatal("no snapshot should not prompt")
	}

	if err := m.Save(ctx, "u1", session.Snapshot{Step: 1, DocumentID: "d1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	resume, err = m.Evaluate(ctx, "u1", "d1", 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resume.Prompt {
		t.Fatal("snapshot at the initial step should not prompt")
	}
	if _, found, _ := m.Load(ctx, "u1", "d1"); found {
		t.Fatal("trivial snapshot should be cleared")
	}
}

func TestEvaluatePromptsOnProgress(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	if err := m.Save(ctx, "u1", session.Snapshot{Step: 5, DocumentID: "d1", AudioFileName: "a.mp3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	resume, err := m.Evaluate(ctx, "u1", "d1", 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !resume.Prompt || resume.Snapshot == nil {
		t.Fatalf("resume = %+v, want prompt with snapshot", resume)
	}
}

func TestApplyWithoutRecordingRestarts(t *testing.T) {
	restored, notice := session.Apply(&session.Snapshot{Step: 5, DocumentID: "d1", Title: "Lost"})
	if restored.Step != 1 {
		t.Fatalf("step = %d, want 1", restored.Step)
	}
	if restored.Title != "" {
		t.Fatalf("state must reset, got title %q", restored.Title)
	}
	if restored.DocumentID != "d1" {
		t.Fatalf("document id must survive the restart, got %q", restored.DocumentID)
	}
	if !strings.Contains(notice, "starting a new session") {
		t.Fatalf("notice = %q", notice)
	}
}

func TestApplyWithRecordingRewindsToUpload(t *testing.T) {
	snap := &session.Snapshot{
		Step:          5,
		DocumentID:    "d1",
		AudioFileName: "council.mp3",
		Title:         "Council Session",
		Speakers:      []transcription.Speaker{{ID: 1, Name: "Ana"}},
	}
	restored, notice := session.Apply(snap)
	if restored.Step != 1 {
		t.Fatalf("step = %d, want rewind to 1", restored.Step)
	}
	if restored.Title != "Council Session" || len(restored.Speakers) != 1 {
		t.Fatalf("progress must be retained, got %+v", restored)
	}
	if !strings.Contains(notice, "council.mp3") {
		t.Fatalf("notice = %q", notice)
	}
}
