package session

import (
	"context"
	"fmt"
)

// firstStep is the wizard's initial step (the recording upload).
const firstStep = 1

// Resume describes what to do with a stored snapshot when the wizard opens.
type Resume struct {
	// Prompt is set when meaningful progress exists and the user should be
	// asked whether to continue or start over.
	Prompt bool
	// Snapshot is the stored state behind the prompt; nil when there is
	// nothing to resume.
	Snapshot *Snapshot
}

// Evaluate inspects the snapshot a user stored for a document against the
// step the wizard would otherwise open on. Snapshots at or before that step
// carry no meaningful progress and are discarded.
func (m *Manager) Evaluate(ctx context.Context, userID, documentID string, initialStep int) (Resume, error) {
	snap, found, err := m.Load(ctx, userID, documentID)
	if err != nil {
		return Resume{}, err
	}
	if !found {
		return Resume{}, nil
	}
	if snap.Step <= initialStep {
		if _, err := m.Clear(ctx, userID, documentID); err != nil {
			return Resume{}, err
		}
		return Resume{}, nil
	}
	return Resume{Prompt: true, Snapshot: snap}, nil
}

// Apply turns an accepted snapshot into the state the wizard should open
// with, plus a user-facing notice. The recording binary is never persisted,
// so a snapshot without a file name restarts from scratch, and one with a
// file name rewinds to the upload step so the recording can be supplied
// again.
func Apply(snap *Snapshot) (Snapshot, string) {
	if snap == nil || snap.AudioFileName == "" {
		fresh := Snapshot{Step: firstStep}
		if snap != nil {
			fresh.DocumentID = snap.DocumentID
		}
		return fresh, "Saved progress had no recording attached; starting a new session."
	}
	restored := *snap
	restored.Step = firstStep
	restored.AudioPath = ""
	notice := fmt.Sprintf("Progress restored. Select the recording %q again to continue.", snap.AudioFileName)
	return restored, notice
}
