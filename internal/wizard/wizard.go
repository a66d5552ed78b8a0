package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"actas/internal/audit"
	"actas/internal/document"
	"actas/internal/logging"
	"actas/internal/rbac"
	"actas/internal/services"
	"actas/internal/services/generation"
	"actas/internal/services/transcription"
	"actas/internal/session"
	"actas/internal/store"
	"actas/internal/template"
)

// Deps carries everything a wizard instance needs.
type Deps struct {
	Store       *store.Store
	Sessions    *session.Manager
	Transcriber transcription.Service
	Generator   generation.Service
	Recorder    *audit.Recorder
	Logger      *slog.Logger
}

// Wizard drives one user's authoring flow from recording upload to the
// section editor. Every state mutation is autosaved to the session layer so
// a browser crash or exit can be resumed later.
type Wizard struct {
	deps Deps
	user *rbac.User

	mu    sync.Mutex
	state session.Snapshot

	phase       chan error
	cancelPhase context.CancelFunc
}

// New builds a wizard for the given user, starting at the upload step. The
// document id is minted up front so autosaves have a stable key before the
// first draft save.
func New(deps Deps, user *rbac.User) *Wizard {
	return &Wizard{
		deps:  prepared(deps),
		user:  user,
		state: session.Snapshot{Step: int(StepUpload), DocumentID: uuid.NewString()},
	}
}

// Open loads an existing draft or rejected document back into the wizard,
// using the wizard state retained on the document as the starting point.
// Call CheckResume afterwards to find autosaved progress newer than that.
func Open(ctx context.Context, deps Deps, user *rbac.User, documentID string) (*Wizard, error) {
	deps = prepared(deps)
	doc, err := deps.Store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, "wizard", "open", documentID, nil)
	}
	if doc.Status != document.StatusDraft && doc.Status != document.StatusRejected {
		return nil, services.Wrap(services.ErrConflict, "wizard", "open",
			fmt.Sprintf("document is %s, only drafts and rejected documents can be edited", doc.Status), nil)
	}
	return &Wizard{deps: deps, user: user, state: baselineState(doc)}, nil
}

// baselineState rebuilds wizard state from a document's retained wizard
// data. Missing or unreadable data falls back to the editor step over the
// document's own content, which also covers documents created without the
// wizard. A retained state whose step still needs the recording binary is
// rewound to upload so the file can be supplied again; once a transcription
// exists the binary is no longer needed and the step stands.
func baselineState(doc *document.Document) session.Snapshot {
	if doc.WizardData != "" {
		var snap session.Snapshot
		if err := json.Unmarshal([]byte(doc.WizardData), &snap); err == nil && snap.Step >= int(StepUpload) {
			snap.DocumentID = doc.ID
			snap.AudioPath = ""
			// Abandoned generation restarts from template selection.
			if snap.Step == int(StepGenerating) {
				snap.Step = int(StepTemplate)
			}
			if snap.Step > int(StepUpload) && snap.Transcription == nil {
				snap.Step = int(StepUpload)
			}
			return snap
		}
	}
	return session.Snapshot{
		Step:        int(StepEditor),
		DocumentID:  doc.ID,
		Title:       doc.Title,
		MeetingDate: doc.MeetingDate,
		SessionType: doc.SessionType,
		TemplateID:  doc.TemplateID,
		Sections:    doc.Sections,
	}
}

func prepared(deps Deps) Deps {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	deps.Logger = logging.WithComponent(deps.Logger, "wizard")
	return deps
}

// State returns a copy of the current wizard state.
func (w *Wizard) State() session.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Step(w.state.Step)
}

// CheckResume reports whether stored progress for this document exists
// beyond the state the wizard opened with.
func (w *Wizard) CheckResume(ctx context.Context) (session.Resume, error) {
	w.mu.Lock()
	docID := w.state.DocumentID
	step := w.state.Step
	w.mu.Unlock()
	return w.deps.Sessions.Evaluate(ctx, w.user.ID, docID, step)
}

// AcceptResume restores the stored snapshot and returns a user-facing
// notice describing what happened. Without stored progress the opening
// state stands.
func (w *Wizard) AcceptResume(ctx context.Context) (string, error) {
	resume, err := w.CheckResume(ctx)
	if err != nil {
		return "", err
	}
	if !resume.Prompt {
		return "", nil
	}

	w.mu.Lock()
	docID := w.state.DocumentID
	w.mu.Unlock()

	restored, notice := session.Apply(resume.Snapshot)
	restored.DocumentID = docID

	w.mu.Lock()
	w.state = restored
	w.mu.Unlock()

	if resume.Snapshot.AudioFileName == "" {
		if _, err := w.deps.Sessions.Clear(ctx, w.user.ID, docID); err != nil {
			return "", err
		}
	} else if err := w.autosave(ctx); err != nil {
		return "", err
	}
	w.deps.Recorder.Record(ctx, w.user, audit.ActionSessionResumed, docID, notice)
	return notice, nil
}

// DiscardResume throws stored progress away and keeps the state the wizard
// opened with.
func (w *Wizard) DiscardResume(ctx context.Context) error {
	w.mu.Lock()
	docID := w.state.DocumentID
	w.mu.Unlock()
	if _, err := w.deps.Sessions.Clear(ctx, w.user.ID, docID); err != nil {
		return err
	}
	w.deps.Recorder.Record(ctx, w.user, audit.ActionSessionDiscarded, docID, "")
	return nil
}

// SetAudio records the selected recording and advances to configuration.
// Only the file name is ever persisted.
func (w *Wizard) SetAudio(ctx context.Context, path, fileName string) error {
	if strings.TrimSpace(fileName) == "" {
		return services.Wrap(services.ErrValidation, "wizard", "set audio", "file name required", nil)
	}
	w.mu.Lock()
	if err := w.requireStepLocked(StepUpload, "set audio"); err != nil {
		w.mu.Unlock()
		return err
	}
	w.state.AudioPath = path
	w.state.AudioFileName = fileName
	w.state.Step = int(StepConfiguration)
	w.mu.Unlock()
	return w.autosave(ctx)
}

// Config is the speaker roster, meeting metadata and processing options
// collected on the configuration step. Speaker ids are assigned by position.
type Config struct {
	Title              string
	MeetingDate        string
	SessionType        string
	DocumentType       string
	Observations       string
	Speakers           []transcription.Speaker
	TranscriptionModel string
	DiarizationModel   string
	AudioEnhancement   bool
}

// Configure stores the meeting configuration, advances to processing and
// starts transcription in the background. Call Wait to block until it
// completes or fails; a failure rewinds to the configuration step.
func (w *Wizard) Configure(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Title) == "" {
		return services.Wrap(services.ErrValidation, "wizard", "configure", "title required", nil)
	}
	if len(cfg.Speakers) == 0 {
		return services.Wrap(services.ErrValidation, "wizard", "configure", "at least one speaker required", nil)
	}
	speakers := make([]transcription.Speaker, len(cfg.Speakers))
	for i, speaker := range cfg.Speakers {
		if strings.TrimSpace(speaker.Name) == "" {
			return services.Wrap(services.ErrValidation, "wizard", "configure", fmt.Sprintf("speaker %d: name required", i+1), nil)
		}
		speaker.ID = i + 1
		speakers[i] = speaker
	}
	w.mu.Lock()
	if err := w.requireStepLocked(StepConfiguration, "configure"); err != nil {
		w.mu.Unlock()
		return err
	}
	w.state.Title = cfg.Title
	w.state.MeetingDate = cfg.MeetingDate
	w.state.SessionType = cfg.SessionType
	w.state.DocumentType = cfg.DocumentType
	w.state.Observations = cfg.Observations
	w.state.Speakers = speakers
	w.state.TranscriptionModel = cfg.TranscriptionModel
	w.state.DiarizationModel = cfg.DiarizationModel
	w.state.AudioEnhancement = cfg.AudioEnhancement
	w.state.Step = int(StepProcessing)
	request := transcription.Request{
		AudioPath:        w.state.AudioPath,
		AudioFileName:    w.state.AudioFileName,
		Speakers:         speakers,
		Model:            cfg.TranscriptionModel,
		Diarization:      cfg.DiarizationModel,
		AudioEnhancement: cfg.AudioEnhancement,
		Meeting: transcription.MeetingData{
			Title:        cfg.Title,
			Date:         cfg.MeetingDate,
			SessionType:  cfg.SessionType,
			DocumentType: cfg.DocumentType,
			Observations: cfg.Observations,
		},
	}
	w.mu.Unlock()
	if err := w.autosave(ctx); err != nil {
		return err
	}

	w.startPhase(func(phaseCtx context.Context) error {
		result, err := w.deps.Transcriber.Transcribe(phaseCtx, request)
		w.mu.Lock()
		if err != nil {
			// Rewind so the user can adjust options and retry.
			w.state.Step = int(StepConfiguration)
			w.mu.Unlock()
			_ = w.autosave(phaseCtx)
			return services.Wrap(services.ErrExternalService, "wizard", "transcribe", "", err)
		}
		w.state.Transcription = result
		w.state.Step = int(StepVerification)
		w.mu.Unlock()
		return w.autosave(phaseCtx)
	})
	return nil
}

// ConfirmTranscription accepts the reviewed transcription and moves on to
// template selection.
func (w *Wizard) ConfirmTranscription(ctx context.Context) error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepVerification, "confirm transcription"); err != nil {
		w.mu.Unlock()
		return err
	}
	w.state.Step = int(StepTemplate)
	w.mu.Unlock()
	return w.autosave(ctx)
}

// SelectTemplate picks the document template, advances to the generating
// step and starts section generation in the background. Segments are
// generated in template order; the first failure aborts the pass and rewinds
// to the template step. Call Wait to block until the pass finishes.
func (w *Wizard) SelectTemplate(ctx context.Context, templateID string) error {
	tmpl, err := w.deps.Store.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return services.Wrap(services.ErrNotFound, "wizard", "select template", templateID, nil)
	}

	w.mu.Lock()
	if err := w.requireStepLocked(StepTemplate, "select template"); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.state.Transcription == nil {
		w.mu.Unlock()
		return services.Wrap(services.ErrConflict, "wizard", "select template", "no transcription available", nil)
	}
	w.state.TemplateID = tmpl.ID
	w.state.Step = int(StepGenerating)
	trans := w.state.Transcription
	w.mu.Unlock()
	if err := w.autosave(ctx); err != nil {
		return err
	}

	segments := tmpl.Segments
	w.startPhase(func(phaseCtx context.Context) error {
		sections := make([]document.Section, 0, len(segments))
		for _, segment := range segments {
			section := document.Section{SegmentID: segment.ID, Title: segment.Title}
			switch segment.Type {
			case template.SegmentStatic:
				section.Content = segment.Content
			case template.SegmentAI:
				content, err := w.deps.Generator.GenerateSegment(phaseCtx, trans, segment.Prompt)
				if err != nil {
					w.mu.Lock()
					w.state.TemplateID = ""
					w.state.Step = int(StepTemplate)
					w.mu.Unlock()
					_ = w.autosave(phaseCtx)
					return services.Wrap(services.ErrExternalService, "wizard", "generate segment",
						fmt.Sprintf("segment %s", segment.ID), err)
				}
				section.Content = content
				section.Generated = true
			}
			sections = append(sections, section)
		}
		w.mu.Lock()
		w.state.Sections = sections
		w.state.Step = int(StepEditor)
		w.mu.Unlock()
		return w.autosave(phaseCtx)
	})
	return nil
}

// UpdateSection replaces one section's content on the editor step.
func (w *Wizard) UpdateSection(ctx context.Context, segmentID, content string) error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepEditor, "update section"); err != nil {
		w.mu.Unlock()
		return err
	}
	found := false
	for i := range w.state.Sections {
		if w.state.Sections[i].SegmentID == segmentID {
			w.state.Sections[i].Content = content
			found = true
			break
		}
	}
	w.mu.Unlock()
	if !found {
		return services.Wrap(services.ErrNotFound, "wizard", "update section", segmentID, nil)
	}
	return w.autosave(ctx)
}

// Back navigates one step backwards. Leaving verification discards the
// transcription; leaving the editor discards the generated sections and the
// template choice.
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	current := Step(w.state.Step)
	target, ok := backTarget(current)
	if !ok {
		w.mu.Unlock()
		return services.Wrap(services.ErrConflict, "wizard", "back", fmt.Sprintf("cannot go back from %s", current), nil)
	}
	switch current {
	case StepVerification:
		w.state.Transcription = nil
	case StepEditor:
		w.state.Sections = nil
		w.state.TemplateID = ""
	}
	w.state.Step = int(target)
	w.mu.Unlock()
	return w.autosave(ctx)
}

// Wait blocks until the pending background phase finishes and returns its
// outcome. It fails fast when no phase is running.
func (w *Wizard) Wait(ctx context.Context) error {
	w.mu.Lock()
	phase := w.phase
	w.mu.Unlock()
	if phase == nil {
		return services.Wrap(services.ErrConflict, "wizard", "wait", "no background work in progress", nil)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-phase:
		w.mu.Lock()
		if w.phase == phase {
			w.phase = nil
			w.cancelPhase = nil
		}
		w.mu.Unlock()
		return err
	}
}

// SaveDraft persists the current work as a draft document and keeps the
// wizard open. The first save creates the document; later saves update it.
// Saving returns a rejected document to draft and clears the recorded
// rejection reason; the version never changes.
func (w *Wizard) SaveDraft(ctx context.Context) (*document.Document, error) {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	title := strings.TrimSpace(state.Title)
	if title == "" {
		title = "Untitled minutes"
		if state.AudioFileName != "" {
			title = "Draft from " + state.AudioFileName
		}
	}
	wizardData, err := marshalSnapshot(state)
	if err != nil {
		return nil, err
	}

	doc, err := w.deps.Store.GetDocument(ctx, state.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc, err = w.deps.Store.CreateDocument(ctx, &document.Document{
			ID:          state.DocumentID,
			Title:       title,
			MeetingDate: state.MeetingDate,
			SessionType: state.SessionType,
			TemplateID:  state.TemplateID,
			Sections:    state.Sections,
			CreatedBy:   w.user.ID,
			WizardData:  wizardData,
		})
		if err != nil {
			return nil, err
		}
		w.deps.Recorder.Record(ctx, w.user, audit.ActionDocumentCreated, doc.ID, "draft saved from wizard")
		return doc, nil
	}

	if doc.Status != document.StatusDraft && doc.Status != document.StatusRejected {
		return nil, services.Wrap(services.ErrConflict, "wizard", "save draft",
			fmt.Sprintf("document is %s and no longer editable", doc.Status), nil)
	}
	doc.Title = title
	doc.MeetingDate = state.MeetingDate
	doc.SessionType = state.SessionType
	doc.TemplateID = state.TemplateID
	doc.Sections = state.Sections
	doc.Status = document.StatusDraft
	doc.RejectionReason = ""
	doc.WizardData = wizardData
	if err := w.deps.Store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	w.deps.Recorder.Record(ctx, w.user, audit.ActionDocumentUpdated, doc.ID, "draft updated from wizard")
	return doc, nil
}

// Exit leaves the wizard. When saveDraft is set the current work is
// persisted as a draft first. The stored session is always cleared; a
// pending background phase is cancelled.
func (w *Wizard) Exit(ctx context.Context, saveDraft bool) (*document.Document, error) {
	w.mu.Lock()
	if w.cancelPhase != nil {
		w.cancelPhase()
		w.cancelPhase = nil
		w.phase = nil
	}
	docID := w.state.DocumentID
	w.mu.Unlock()

	var doc *document.Document
	if saveDraft {
		saved, err := w.SaveDraft(ctx)
		if err != nil {
			return nil, err
		}
		doc = saved
	}
	if _, err := w.deps.Sessions.Clear(ctx, w.user.ID, docID); err != nil {
		return doc, err
	}
	return doc, nil
}

// Finish completes the flow on the editor step: the document is saved as a
// draft ready for submission and the stored session is cleared.
func (w *Wizard) Finish(ctx context.Context) (*document.Document, error) {
	w.mu.Lock()
	if err := w.requireStepLocked(StepEditor, "finish"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	docID := w.state.DocumentID
	w.mu.Unlock()

	doc, err := w.SaveDraft(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := w.deps.Sessions.Clear(ctx, w.user.ID, docID); err != nil {
		return doc, err
	}
	return doc, nil
}

func (w *Wizard) startPhase(run func(ctx context.Context) error) {
	phaseCtx, cancel := context.WithCancel(context.Background())
	phase := make(chan error, 1)

	w.mu.Lock()
	w.phase = phase
	w.cancelPhase = cancel
	w.mu.Unlock()

	go func() {
		defer cancel()
		start := time.Now()
		err := run(phaseCtx)
		if err != nil {
			w.deps.Logger.Warn("background phase failed",
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(start)))
		}
		phase <- err
	}()
}

func (w *Wizard) requireStepLocked(want Step, op string) error {
	if Step(w.state.Step) != want {
		return services.Wrap(services.ErrConflict, "wizard", op,
			fmt.Sprintf("wizard is on %s, %s requires %s", Step(w.state.Step), op, want), nil)
	}
	return nil
}

func marshalSnapshot(state session.Snapshot) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal wizard state: %w", err)
	}
	return string(data), nil
}

func (w *Wizard) autosave(ctx context.Context) error {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()
	return w.deps.Sessions.Save(ctx, w.user.ID, state)
}
