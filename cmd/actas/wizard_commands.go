package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"actas/internal/audit"
	"actas/internal/config"
	"actas/internal/services/generation"
	"actas/internal/services/transcription"
	"actas/internal/session"
	"actas/internal/store"
	"actas/internal/wizard"
)

func newWizardCommand(ctx *commandContext) *cobra.Command {
	wizardCmd := &cobra.Command{
		Use:   "wizard",
		Short: "Produce minutes from a recording",
	}

	wizardCmd.AddCommand(newWizardRunCommand(ctx))
	wizardCmd.AddCommand(newWizardEditCommand(ctx))

	return wizardCmd
}

func wizardDeps(cfg *config.Config, st *store.Store) wizard.Deps {
	return wizard.Deps{
		Store:       st,
		Sessions:    session.NewManager(st),
		Transcriber: transcription.NewFromConfig(cfg),
		Generator:   generation.NewFromConfig(cfg),
		Recorder:    audit.NewRecorder(st, nil),
	}
}

// newWizardRunCommand drives the whole authoring flow in one shot: upload,
// participants, configuration, transcription, template selection, section
// generation, finish. Without configured service endpoints the built-in
// mocks produce deterministic output, which is useful for trying the flow
// end to end.
func newWizardRunCommand(ctx *commandContext) *cobra.Command {
	var audioPath string
	var speakers []string
	var title string
	var meetingDate string
	var sessionType string
	var observations string
	var templateID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full authoring flow and save the result as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				if strings.TrimSpace(audioPath) == "" {
					return fmt.Errorf("--audio is required")
				}
				if len(speakers) == 0 {
					return fmt.Errorf("at least one --speaker is required")
				}
				if strings.TrimSpace(templateID) == "" {
					return fmt.Errorf("--template is required (see `actas template list`)")
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}

				w := wizard.New(wizardDeps(cfg, st), actor)

				if err := w.SetAudio(cctx, audioPath, filepath.Base(audioPath)); err != nil {
					return err
				}
				roster := make([]transcription.Speaker, 0, len(speakers))
				for _, name := range speakers {
					roster = append(roster, transcription.Speaker{
						Name:          name,
						Participation: transcription.ParticipationVoiceAndVote,
					})
				}
				if err := w.Configure(cctx, wizard.Config{
					Title:        title,
					MeetingDate:  meetingDate,
					SessionType:  sessionType,
					Observations: observations,
					Speakers:     roster,
				}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Transcribing...")
				if err := w.Wait(cctx); err != nil {
					return err
				}
				if err := w.ConfirmTranscription(cctx); err != nil {
					return err
				}
				if err := w.SelectTemplate(cctx, templateID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Generating sections...")
				if err := w.Wait(cctx); err != nil {
					return err
				}
				doc, err := w.Finish(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved draft %s (%s) with %d sections\n",
					doc.ID, doc.Title, len(doc.Sections))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to the meeting recording")
	cmd.Flags().StringSliceVar(&speakers, "speaker", nil, "Participant name (repeatable, in speaking order)")
	cmd.Flags().StringVar(&title, "title", "", "Meeting title")
	cmd.Flags().StringVar(&meetingDate, "date", "", "Meeting date, e.g. 2026-08-30")
	cmd.Flags().StringVar(&sessionType, "session-type", "", "Meeting session type")
	cmd.Flags().StringVar(&observations, "observations", "", "Free-form notes passed to processing")
	cmd.Flags().StringVar(&templateID, "template", "", "Template id for the generated document")
	return cmd
}

// newWizardEditCommand reopens a draft or rejected document from its
// retained wizard state. Autosaved progress newer than the last draft save
// is resumed unless --discard drops it; saving returns a rejected document
// to draft.
func newWizardEditCommand(ctx *commandContext) *cobra.Command {
	var discard bool
	var sectionEdits []string

	cmd := &cobra.Command{
		Use:   "edit <document-id>",
		Short: "Reopen a draft or rejected document in the wizard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cctx context.Context, st *store.Store) error {
				actor, err := ctx.resolveActor(cctx, st)
				if err != nil {
					return err
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}

				w, err := wizard.Open(cctx, wizardDeps(cfg, st), actor, args[0])
				if err != nil {
					return err
				}
				resume, err := w.CheckResume(cctx)
				if err != nil {
					return err
				}
				if resume.Prompt {
					if discard {
						if err := w.DiscardResume(cctx); err != nil {
							return err
						}
						fmt.Fprintln(cmd.OutOrStdout(), "Discarded saved progress")
					} else {
						notice, err := w.AcceptResume(cctx)
						if err != nil {
							return err
						}
						fmt.Fprintln(cmd.OutOrStdout(), notice)
					}
				}

				for _, edit := range sectionEdits {
					segmentID, content, ok := strings.Cut(edit, "=")
					if !ok {
						return fmt.Errorf("--set-section wants <segment-id>=<content>, got %q", edit)
					}
					if err := w.UpdateSection(cctx, segmentID, content); err != nil {
						return err
					}
				}

				doc, err := w.SaveDraft(cctx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved draft %s (%s) at step %s\n",
					doc.ID, doc.Title, w.Step())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&discard, "discard", false, "Drop autosaved progress and keep the document's own state")
	cmd.Flags().StringArrayVar(&sectionEdits, "set-section", nil, "Replace a section's content as <segment-id>=<content> (repeatable)")
	return cmd
}
