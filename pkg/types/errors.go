// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// MissingInputError reports that a required upload is absent.
type MissingInputError struct {
	// Input names the missing input ("brief" or "decks").
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s is required", e.Input)
}

// ParseError reports a malformed slide deck or document.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError reports text that is not valid in the expected encoding.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a brief whose extension matches no known format.
type UnsupportedFormatError struct {
	File string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported format for %s: no file extension", e.File)
	}
	return fmt.Sprintf("unsupported format for %s: %q", e.File, e.Ext)
}

// GenerationError reports a failed or timed-out generation call for one prompt.
type GenerationError struct {
	// PromptID identifies the prompt that was being generated.
	PromptID string
	// Backend names the backend variant.
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating draft for prompt %s with %s backend: %v", e.PromptID, e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BackendInitError reports that the generation backend could not be set up.
// It is fatal to the process.
type BackendInitError struct {
	Backend string
	Err     error
}

func (e *BackendInitError) Error() string {
	return fmt.Sprintf("initializing %s backend: %v", e.Backend, e.Err)
}

func (e *BackendInitError) Unwrap() error { return e.Err }
