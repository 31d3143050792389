package model

import "errors"

// Error classes surfaced through the status reporter. Every operation wraps
// its failure in exactly one of these so the UI can phrase it consistently.
var (
	// ErrNoLocation: a pipeline run was requested before any location fix.
	ErrNoLocation = errors.New("location not available yet")
	// ErrEmptyText: the submitted text is empty after trimming.
	ErrEmptyText = errors.New("query text is empty")
	// ErrMicUnavailable: capture device denied or missing.
	ErrMicUnavailable = errors.New("microphone unavailable")
	// ErrEmptyTranscript: transcription succeeded but produced no text.
	ErrEmptyTranscript = errors.New("transcription returned no text")
	// ErrInit: config fetch or map setup failed; search is not possible.
	ErrInit = errors.New("initialization failed")
)
