// Package transcription defines the speech-to-text service contract, the
// transcription payload types, an HTTP client, and a deterministic mock.
package transcription
