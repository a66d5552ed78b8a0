package transcription

// ParticipationType classifies how a participant takes part in a meeting.
type ParticipationType string

const (
	ParticipationVoiceAndVote  ParticipationType = "voice_and_vote"
	ParticipationVoiceOnly     ParticipationType = "voice_only"
	ParticipationSignatureOnly ParticipationType = "signature_only"
	ParticipationAttendee      ParticipationType = "attendee"
)

// Speaker is a meeting participant. LinkedUserID is set when the participant
// was picked from the system user table instead of typed in manually.
type Speaker struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	NationalID    string            `json:"national_id,omitempty"`
	Title         string            `json:"title,omitempty"`
	Participation ParticipationType `json:"participation"`
	Institution   string            `json:"institution,omitempty"`
	LinkedUserID  string            `json:"linked_user_id,omitempty"`
}

// DialogueEntry is one speaker-tagged utterance with HH:MM:SS timestamps.
type DialogueEntry struct {
	SpeakerID int    `json:"speaker_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

// Stats aggregates transcription-level numbers.
type Stats struct {
	TotalWords           int         `json:"total_words"`
	TotalDurationSeconds int         `json:"total_duration_seconds"`
	SpeakingTimeSeconds  map[int]int `json:"speaking_time_per_speaker"`
	TranscriptionModel   string      `json:"transcription_model"`
	DiarizationModel     string      `json:"diarization_model"`
}

// MeetingData is the author-supplied meeting metadata.
type MeetingData struct {
	Title        string `json:"title"`
	Date         string `json:"date"`
	SessionType  string `json:"session_type"`
	DocumentType string `json:"document_type"`
	Observations string `json:"observations"`
}

// Transcription is the payload produced by processing an audio recording.
type Transcription struct {
	MeetingTitle string          `json:"meeting_title"`
	MeetingDate  string          `json:"meeting_date"`
	DocumentType string          `json:"acta_type"`
	SessionType  string          `json:"session_type"`
	Institution  string          `json:"municipality"`
	Observations string          `json:"observations"`
	Speakers     []Speaker       `json:"speakers"`
	Dialogue     []DialogueEntry `json:"dialogue"`
	Statistics   Stats           `json:"statistics"`
}

// Request carries everything the transcription service needs. AudioPath is a
// local file reference; the audio binary itself never enters durable state.
type Request struct {
	AudioPath        string      `json:"audio_path"`
	AudioFileName    string      `json:"audio_file_name"`
	Speakers         []Speaker   `json:"speakers"`
	Meeting          MeetingData `json:"meeting"`
	Model            string      `json:"model"`
	Diarization      string      `json:"diarization"`
	AudioEnhancement bool        `json:"audio_enhancement"`
}
