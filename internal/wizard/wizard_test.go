package wizard_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/rbac"
	"actas/internal/services"
	"actas/internal/services/generation"
	"actas/internal/services/transcription"
	"actas/internal/session"
	"actas/internal/store"
	"actas/internal/testsupport"
	"actas/internal/wizard"
)

type env struct {
	store       *store.Store
	sessions    *session.Manager
	transcriber *transcription.Mock
	generator   *generation.Mock
	user        *rbac.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return &env{
		store:       st,
		sessions:    session.NewManager(st),
		transcriber: transcription.NewMock(),
		generator:   generation.NewMock(),
		user:        testsupport.NewUser(t, st, "Ana Torres", "ana@example.org", store.RoleIDEditor),
	}
}

func (e *env) deps() wizard.Deps {
	return wizard.Deps{
		Store:       e.store,
		Sessions:    e.sessions,
		Transcriber: e.transcriber,
		Generator:   e.generator,
		Recorder:    audit.NewRecorder(e.store, nil),
	}
}

func (e *env) wizard() *wizard.Wizard {
	return wizard.New(e.deps(), e.user)
}

func councilSpeakers() []transcription.Speaker {
	return []transcription.Speaker{
		{Name: "Ana Torres", Participation: transcription.ParticipationVoiceAndVote},
		{Name: "Luis Vega", Participation: transcription.ParticipationVoiceOnly},
	}
}

func runToVerification(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	ctx := context.Background()
	if err := w.SetAudio(ctx, "/tmp/council.mp3", "council.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	if w.Step() != wizard.StepConfiguration {
		t.Fatalf("step = %s, want configuration", w.Step())
	}
	err := w.Configure(ctx, wizard.Config{
		Title:       "Council Session",
		MeetingDate: "2026-04-01",
		Speakers:    councilSpeakers(),
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait(transcription): %v", err)
	}
	if w.Step() != wizard.StepVerification {
		t.Fatalf("step = %s, want verification", w.Step())
	}
}

func runToEditor(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	ctx := context.Background()
	runToVerification(t, w)
	if err := w.ConfirmTranscription(ctx); err != nil {
		t.Fatalf("ConfirmTranscription: %v", err)
	}
	if err := w.SelectTemplate(ctx, "project-standup"); err != nil {
		t.Fatalf("SelectTemplate: %v", err)
	}
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait(generation): %v", err)
	}
	if w.Step() != wizard.StepEditor {
		t.Fatalf("step = %s, want editor", w.Step())
	}
}

func TestHappyPathProducesDraftDocument(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	runToEditor(t, w)

	state := w.State()
	if state.Transcription == nil {
		t.Fatal("transcription missing")
	}
	if len(state.Sections) != 4 {
		t.Fatalf("sections = %d, want 4 from project-standup", len(state.Sections))
	}
	for _, section := range state.Sections {
		if !section.Generated {
			t.Fatalf("project-standup sections are all ai, got %+v", section)
		}
		if section.Content == "" {
			t.Fatalf("section %s empty", section.SegmentID)
		}
	}

	if err := w.UpdateSection(ctx, state.Sections[0].SegmentID, "Edited summary."); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}

	doc, err := w.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if doc.Title != "Council Session" || doc.TemplateID != "project-standup" {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Sections[0].Content != "Edited summary." {
		t.Fatalf("edited content lost: %q", doc.Sections[0].Content)
	}
	if doc.WizardData == "" {
		t.Fatal("wizard data not persisted")
	}
	if strings.Contains(doc.WizardData, "/tmp/council.mp3") {
		t.Fatal("audio path leaked into durable state")
	}
	if !strings.Contains(doc.WizardData, "council.mp3") {
		t.Fatal("audio file name should persist")
	}

	if _, found, _ := e.store.GetWizardSession(ctx, e.user.ID, doc.ID); found {
		t.Fatal("session must clear after finish")
	}
}

func TestTranscriptionFailureRewindsToConfiguration(t *testing.T) {
	e := newEnv(t)
	e.transcriber.Fail = true
	w := e.wizard()
	ctx := context.Background()

	if err := w.SetAudio(ctx, "", "a.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	cfg := wizard.Config{Title: "T", Speakers: []transcription.Speaker{{Name: "Ana"}}}
	if err := w.Configure(ctx, cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := w.Wait(ctx); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("Wait = %v, want ErrExternalService", err)
	}
	if w.Step() != wizard.StepConfiguration {
		t.Fatalf("step = %s, want rewind to configuration", w.Step())
	}

	// Retry succeeds once the backend recovers.
	e.transcriber.Fail = false
	if err := w.Configure(ctx, cfg); err != nil {
		t.Fatalf("Configure(retry): %v", err)
	}
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait(retry): %v", err)
	}
	if w.Step() != wizard.StepVerification {
		t.Fatalf("step = %s after retry", w.Step())
	}
}

func TestGenerationRunsOnGeneratingStep(t *testing.T) {
	e := newEnv(t)
	e.generator.Delay = 100 * time.Millisecond
	w := e.wizard()
	ctx := context.Background()
	runToVerification(t, w)
	if err := w.ConfirmTranscription(ctx); err != nil {
		t.Fatalf("ConfirmTranscription: %v", err)
	}

	if err := w.SelectTemplate(ctx, "project-standup"); err != nil {
		t.Fatalf("SelectTemplate: %v", err)
	}
	// The pass is still running, so the wizard sits on the generating step
	// and the autosaved snapshot records that position.
	if w.Step() != wizard.StepGenerating {
		t.Fatalf("step = %s, want generating while the pass runs", w.Step())
	}
	snap, found, err := e.sessions.Load(ctx, e.user.ID, w.State().DocumentID)
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if snap.Step != int(wizard.StepGenerating) {
		t.Fatalf("snapshot step = %d, want generating", snap.Step)
	}

	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if w.Step() != wizard.StepEditor {
		t.Fatalf("step = %s, want editor", w.Step())
	}
}

func TestGenerationFailureAbortsPassAndRewinds(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	runToVerification(t, w)
	if err := w.ConfirmTranscription(ctx); err != nil {
		t.Fatalf("ConfirmTranscription: %v", err)
	}

	e.generator.Fail = true
	if err := w.SelectTemplate(ctx, "project-standup"); err != nil {
		t.Fatalf("SelectTemplate: %v", err)
	}
	if err := w.Wait(ctx); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("Wait = %v, want ErrExternalService", err)
	}
	if w.Step() != wizard.StepTemplate {
		t.Fatalf("step = %s, want rewind to template", w.Step())
	}
	if w.State().TemplateID != "" {
		t.Fatal("template choice must clear on failure")
	}
	if e.generator.Calls() != 1 {
		t.Fatalf("generator calls = %d, pass must abort on first failure", e.generator.Calls())
	}
}

func TestBackTransitionsClearDerivedState(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	runToEditor(t, w)

	// Editor -> template drops sections and template choice.
	if err := w.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if w.Step() != wizard.StepTemplate {
		t.Fatalf("step = %s", w.Step())
	}
	state := w.State()
	if len(state.Sections) != 0 || state.TemplateID != "" {
		t.Fatalf("derived state survived back: %+v", state)
	}
	if state.Transcription == nil {
		t.Fatal("transcription must survive leaving the editor")
	}

	// Template -> verification keeps the transcription.
	if err := w.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if w.Step() != wizard.StepVerification || w.State().Transcription == nil {
		t.Fatalf("step = %s", w.Step())
	}

	// Verification -> configuration drops the transcription.
	if err := w.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if w.Step() != wizard.StepConfiguration {
		t.Fatalf("step = %s", w.Step())
	}
	if w.State().Transcription != nil {
		t.Fatal("transcription must clear when leaving verification")
	}

	// Configuration -> upload.
	if err := w.Back(ctx); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if w.Step() != wizard.StepUpload {
		t.Fatalf("step = %s", w.Step())
	}

	if err := w.Back(ctx); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("Back from upload = %v, want ErrConflict", err)
	}
}

func TestStepGuards(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()

	valid := wizard.Config{Title: "T", Speakers: []transcription.Speaker{{Name: "Ana"}}}
	if err := w.Configure(ctx, valid); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("Configure on upload = %v, want ErrConflict", err)
	}
	if err := w.SetAudio(ctx, "", "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("SetAudio without name = %v, want ErrValidation", err)
	}
	if err := w.Wait(ctx); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("Wait without phase = %v, want ErrConflict", err)
	}
	if _, err := w.Finish(ctx); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("Finish on upload = %v, want ErrConflict", err)
	}

	if err := w.SetAudio(ctx, "", "a.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	if err := w.Configure(ctx, wizard.Config{Title: "T"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Configure without speakers = %v, want ErrValidation", err)
	}
}

func TestExitSavesDraftAndClearsSession(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	runToVerification(t, w)

	doc, err := w.Exit(ctx, true)
	if err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if doc == nil || doc.Title != "Council Session" {
		t.Fatalf("draft = %+v", doc)
	}
	if _, found, _ := e.store.GetWizardSession(ctx, e.user.ID, doc.ID); found {
		t.Fatal("session must clear on exit")
	}

	// Exit without saving also clears.
	w2 := e.wizard()
	if err := w2.SetAudio(ctx, "", "x.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	if _, err := w2.Exit(ctx, false); err != nil {
		t.Fatalf("Exit(discard): %v", err)
	}
	if _, found, _ := e.store.GetWizardSession(ctx, e.user.ID, w2.State().DocumentID); found {
		t.Fatal("session must clear on discard exit")
	}
}

func TestOpenResumesAutosavedProgress(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()

	if err := w.SetAudio(ctx, "/tmp/council.mp3", "council.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	doc, err := w.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	err = w.Configure(ctx, wizard.Config{Title: "Council Session", Speakers: councilSpeakers()})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// The wizard is abandoned here: the autosaved snapshot sits at
	// verification while the document's retained state is still at
	// configuration.

	w2, err := wizard.Open(ctx, e.deps(), e.user, doc.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resume, err := w2.CheckResume(ctx)
	if err != nil {
		t.Fatalf("CheckResume: %v", err)
	}
	if !resume.Prompt {
		t.Fatal("expected resume prompt")
	}

	notice, err := w2.AcceptResume(ctx)
	if err != nil {
		t.Fatalf("AcceptResume: %v", err)
	}
	if !strings.Contains(notice, "council.mp3") {
		t.Fatalf("notice = %q", notice)
	}
	if w2.Step() != wizard.StepUpload {
		t.Fatalf("step = %s, recording must be supplied again", w2.Step())
	}
	state := w2.State()
	if state.DocumentID != doc.ID {
		t.Fatalf("document id = %q, want %q", state.DocumentID, doc.ID)
	}
	if state.Title != "Council Session" || len(state.Speakers) != 2 {
		t.Fatalf("restored state = %+v", state)
	}

	// Reopening now finds nothing further along than the rewound snapshot.
	w3, err := wizard.Open(ctx, e.deps(), e.user, doc.ID)
	if err != nil {
		t.Fatalf("Open(again): %v", err)
	}
	resume, err = w3.CheckResume(ctx)
	if err != nil {
		t.Fatalf("CheckResume: %v", err)
	}
	if resume.Prompt {
		t.Fatal("rewound snapshot must not prompt again")
	}
}

func TestDiscardResumeKeepsOpeningState(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()

	// Abandon the flow with autosaved progress beyond the last draft save.
	if err := w.SetAudio(ctx, "/tmp/council.mp3", "council.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}
	doc, err := w.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	err = w.Configure(ctx, wizard.Config{Title: "Council Session", Speakers: councilSpeakers()})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	w2, err := wizard.Open(ctx, e.deps(), e.user, doc.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := w2.State()
	if err := w2.DiscardResume(ctx); err != nil {
		t.Fatalf("DiscardResume: %v", err)
	}
	if _, found, _ := e.sessions.Load(ctx, e.user.ID, doc.ID); found {
		t.Fatal("session must clear on discard")
	}
	after := w2.State()
	if after.Step != before.Step || after.Title != before.Title {
		t.Fatalf("opening state changed on discard: %+v vs %+v", after, before)
	}
}

func TestOpenWithoutWizardDataLandsOnEditor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc, err := e.store.CreateDocument(ctx, &document.Document{
		Title:     "Manual Minutes",
		CreatedBy: e.user.ID,
		Sections:  []document.Section{{SegmentID: "summary", Title: "Summary", Content: "Old text."}},
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	w, err := wizard.Open(ctx, e.deps(), e.user, doc.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Step() != wizard.StepEditor {
		t.Fatalf("step = %s, want editor", w.Step())
	}
	if err := w.UpdateSection(ctx, "summary", "New text."); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	saved, err := w.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if saved.ID != doc.ID || saved.Sections[0].Content != "New text." {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestOpenRejectedDocumentSaveReturnsToDraft(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	runToEditor(t, w)
	doc, err := w.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	doc.Status = document.StatusRejected
	doc.RejectionReason = "Attendance list is incomplete"
	if err := e.store.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	w2, err := wizard.Open(ctx, e.deps(), e.user, doc.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w2.Step() != wizard.StepEditor {
		t.Fatalf("step = %s, retained editor state expected", w2.Step())
	}
	saved, err := w2.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if saved.Status != document.StatusDraft {
		t.Fatalf("status = %s, saving must return the document to draft", saved.Status)
	}
	if saved.RejectionReason != "" {
		t.Fatalf("rejection reason survived the save: %q", saved.RejectionReason)
	}
	if saved.Version != doc.Version {
		t.Fatalf("version changed on draft save: %d -> %d", doc.Version, saved.Version)
	}
}

func TestOpenRefusesNonEditableDocuments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := wizard.Open(ctx, e.deps(), e.user, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Open(missing) = %v, want ErrNotFound", err)
	}

	doc, err := e.store.CreateDocument(ctx, &document.Document{Title: "Published", CreatedBy: e.user.ID})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	doc.Status = document.StatusPublished
	if err := e.store.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if _, err := wizard.Open(ctx, e.deps(), e.user, doc.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("Open(published) = %v, want ErrConflict", err)
	}
}

func TestSaveDraftCreatesThenUpdates(t *testing.T) {
	e := newEnv(t)
	w := e.wizard()
	ctx := context.Background()
	if err := w.SetAudio(ctx, "", "early.mp3"); err != nil {
		t.Fatalf("SetAudio: %v", err)
	}

	first, err := w.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if first.Title != "Draft from early.mp3" {
		t.Fatalf("fallback title = %q", first.Title)
	}

	second, err := w.SaveDraft(ctx)
	if err != nil {
		t.Fatalf("SaveDraft(update): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("update created a new document: %s vs %s", second.ID, first.ID)
	}
	if second.Version != 1 {
		t.Fatalf("draft saves must not bump version, got %d", second.Version)
	}
}
