// Package failure defines the error kinds surfaced to the user.
package failure

import (
	"errors"
	"strings"
)

// Error kinds. Every error leaving a session operation wraps exactly one of these.
var (
	ErrCaptureUnavailable  = errors.New("audio capture unavailable")
	ErrValidationFailed    = errors.New("validation failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrRelayFailed         = errors.New("workflow relay failed")
	ErrUnexpectedFailure   = errors.New("unexpected failure")
)

var kinds = []error{
	ErrCaptureUnavailable,
	ErrValidationFailed,
	ErrTranscriptionFailed,
	ErrRelayFailed,
	ErrUnexpectedFailure,
}

// Kind returns the kind wrapped by err, or ErrUnexpectedFailure when err
// carries none. Kind(nil) is nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}

	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}

	return ErrUnexpectedFailure
}

// Classify makes sure err wraps a kind, wrapping it in ErrUnexpectedFailure
// otherwise.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}

	return errors.Join(ErrUnexpectedFailure, err)
}

// Code returns a short machine-readable name for the kind of err.
func Code(err error) string {
	switch Kind(err) {
	case nil:
		return ""
	case ErrCaptureUnavailable:
		return "capture_unavailable"
	case ErrValidationFailed:
		return "validation_failed"
	case ErrTranscriptionFailed:
		return "transcription_failed"
	case ErrRelayFailed:
		return "relay_failed"
	default:
		return "unexpected_failure"
	}
}

// Message renders err as a single status line for the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	// errors.Join puts each error on its own line
	msg := strings.ReplaceAll(err.Error(), "\n", ": ")

	return "Error: " + msg
}
