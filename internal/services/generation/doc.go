// Package generation drafts minutes content from a transcription, one
// template segment at a time, via an OpenAI-compatible chat completion API.
package generation
