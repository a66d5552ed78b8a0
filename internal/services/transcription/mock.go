package transcription

import (
	"context"
	"strings"
	"time"

	"actas/internal/services"
)

// Mock is a deterministic in-process transcription backend. It mirrors the
// shape of real output closely enough to drive the wizard end to end without
// a speech-to-text deployment.
type Mock struct {
	Model       string
	Diarization string
	Institution string
	// Delay simulates processing time; zero in tests.
	Delay time.Duration
	// Fail forces every call to report a service failure.
	Fail bool
}

// NewMock returns a mock with sensible defaults.
func NewMock() *Mock {
	return &Mock{Model: "large-v3", Diarization: "pyannote"}
}

var mockDialogue = []DialogueEntry{
	{SpeakerID: 1, StartTime: "00:00:15", EndTime: "00:00:28", Text: "Good morning everyone. Let's begin with the project review. What is the current state of the authentication module?"},
	{SpeakerID: 2, StartTime: "00:00:29", EndTime: "00:00:45", Text: "The authentication module is about ninety percent complete. We found a small problem with the OAuth2 integration but expect to resolve it by the end of the week."},
	{SpeakerID: 1, StartTime: "00:00:46", EndTime: "00:00:55", Text: "Understood. Make sure the fix is documented. How is the new user interface coming along?"},
	{SpeakerID: 3, StartTime: "00:00:56", EndTime: "00:01:18", Text: "The frontend team has finished the main components and we are now in usability testing. Initial feedback is positive, though several users mentioned the color contrast could improve for accessibility."},
	{SpeakerID: 1, StartTime: "00:01:19", EndTime: "00:01:25", Text: "Excellent. Accessibility is a priority, please assign someone to it."},
	{SpeakerID: 2, StartTime: "00:01:26", EndTime: "00:01:40", Text: "Once OAuth2 is sorted we will deploy to staging. I will need support from operations on Friday."},
	{SpeakerID: 1, StartTime: "00:01:41", EndTime: "00:01:50", Text: "Agreed, I will coordinate that. The goal is everything in staging by Monday. Any other blockers?"},
	{SpeakerID: 3, StartTime: "00:01:51", EndTime: "00:02:05", Text: "Nothing from our side beyond the accessibility adjustment. Next sprint we start integrating live data into the interface."},
}

// Transcribe implements Service.
func (m *Mock) Transcribe(ctx context.Context, req Request) (*Transcription, error) {
	if strings.TrimSpace(req.AudioFileName) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio file required", nil)
	}
	if m.Fail {
		return nil, services.Wrap(services.ErrExternalService, "transcription", "transcribe", "mock failure requested", nil)
	}
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	speakers := make([]Speaker, len(req.Speakers))
	for i, s := range req.Speakers {
		s.ID = i + 1
		speakers[i] = s
	}

	dialogue := make([]DialogueEntry, len(mockDialogue))
	copy(dialogue, mockDialogue)
	// Remap dialogue onto however many speakers the meeting actually has.
	if len(speakers) > 0 {
		for i := range dialogue {
			dialogue[i].SpeakerID = (dialogue[i].SpeakerID-1)%len(speakers) + 1
		}
	}

	speakingTime := make(map[int]int, len(speakers))
	totalWords := 0
	for _, entry := range dialogue {
		totalWords += len(strings.Fields(entry.Text))
		speakingTime[entry.SpeakerID] += spanSeconds(entry.StartTime, entry.EndTime)
	}

	out := &Transcription{
		MeetingTitle: orDefault(req.Meeting.Title, "Quarterly Project Review"),
		MeetingDate:  orDefault(req.Meeting.Date, time.Now().UTC().Format("2006-01-02")),
		DocumentType: orDefault(req.Meeting.DocumentType, "Ordinary"),
		SessionType:  orDefault(req.Meeting.SessionType, "Project Committee"),
		Institution:  m.Institution,
		Observations: orDefault(req.Meeting.Observations, "No observations."),
		Speakers:     speakers,
		Dialogue:     dialogue,
		Statistics: Stats{
			TotalWords:           totalWords,
			TotalDurationSeconds: 125,
			SpeakingTimeSeconds:  speakingTime,
			TranscriptionModel:   orDefault(req.Model, m.Model),
			DiarizationModel:     orDefault(req.Diarization, m.Diarization),
		},
	}
	return out, nil
}

func spanSeconds(start, end string) int {
	return clockSeconds(end) - clockSeconds(start)
}

func clockSeconds(value string) int {
	var h, m, s int
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0
	}
	h = atoi(parts[0])
	m = atoi(parts[1])
	s = atoi(parts[2])
	return h*3600 + m*60 + s
}

func atoi(value string) int {
	n := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
