package config

const (
	defaultDataDir               = "~/.local/share/actas/data"
	defaultLogDir                = "~/.local/share/actas/logs"
	defaultAPIBind               = "127.0.0.1:7512"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultSessionTimeoutMinutes = 30
	defaultGenerationBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultGenerationModel       = "google/gemini-3-flash-preview"
	defaultGenerationTitle       = "Actas Segment Generator"
	defaultGenerationTimeout     = 60
	defaultTranscriptionModel    = "large-v3"
	defaultTranscriptionDiarizer = "pyannote"
	defaultTranscriptionTimeout  = 600
	defaultSMTPPort              = 587
	defaultSMTPSecurity          = "tls"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Institution: Institution{
			SessionTimeoutMinutes: defaultSessionTimeoutMinutes,
			MFAEnabled:            false,
		},
		Generation: Generation{
			BaseURL:        defaultGenerationBaseURL,
			Model:          defaultGenerationModel,
			Title:          defaultGenerationTitle,
			TimeoutSeconds: defaultGenerationTimeout,
		},
		Transcription: Transcription{
			Model:          defaultTranscriptionModel,
			Diarization:    defaultTranscriptionDiarizer,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		SMTP: SMTP{
			Port:     defaultSMTPPort,
			Security: defaultSMTPSecurity,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
