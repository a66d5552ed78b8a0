package config

import (
	"errors"
	"fmt"
	"strings"
)

var validSMTPSecurity = map[string]struct{}{
	"none": {},
	"ssl":  {},
	"tls":  {},
}

// Validate checks configuration values for internal consistency.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Institution.SessionTimeoutMinutes < 0 {
		problems = append(problems, "institution.session_timeout_minutes must not be negative")
	}
	if c.Generation.TimeoutSeconds < 0 {
		problems = append(problems, "generation.timeout_seconds must not be negative")
	}
	if c.Transcription.TimeoutSeconds < 0 {
		problems = append(problems, "transcription.timeout_seconds must not be negative")
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		problems = append(problems, "smtp.port must be between 0 and 65535")
	}
	if c.SMTP.Security != "" {
		if _, ok := validSMTPSecurity[c.SMTP.Security]; !ok {
			problems = append(problems, fmt.Sprintf("smtp.security %q must be one of none, ssl, tls", c.SMTP.Security))
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
