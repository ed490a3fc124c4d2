// Package pipeline runs the two network stages of processing a recording:
// transcribe, then relay. The second stage never starts unless the first
// succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/validate"
)

// Transcriber turns encoded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, apiKey string, audio artifact.Artifact) (string, error)
}

// Relay forwards a transcript to the downstream workflow.
type Relay interface {
	Relay(ctx context.Context, transcript, email string) error
}

// Step identifies pipeline progress reported to an Observer.
type Step int

const (
	StepTranscribing Step = iota
	StepTranscribed
	StepRelaying
	StepRelayed
)

func (s Step) String() string {
	switch s {
	case StepTranscribing:
		return "transcribing"
	case StepTranscribed:
		return "transcribed"
	case StepRelaying:
		return "relaying"
	case StepRelayed:
		return "relayed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Observer is told about each step as it happens. transcript is set from
// StepTranscribed on.
type Observer func(step Step, transcript string)

// Pipeline wires a transcriber to a relay.
type Pipeline struct {
	transcriber Transcriber
	relay       Relay
	logger      *slog.Logger
}

// New creates a pipeline. A nil logger falls back to slog.Default().
func New(transcriber Transcriber, relay Relay, logger *slog.Logger) (*Pipeline, error) {
	if transcriber == nil {
		return nil, errors.New("transcriber cannot be nil")
	}

	if relay == nil {
		return nil, errors.New("relay cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		transcriber: transcriber,
		relay:       relay,
		logger:      logger,
	}, nil
}

// Run transcribes audio and relays the text. The returned transcript is set
// whenever transcription succeeded, even if the relay then failed. Every
// returned error wraps one of the failure kinds.
func (p *Pipeline) Run(
	ctx context.Context,
	creds validate.Credentials,
	audio artifact.Artifact,
	observe Observer,
) (string, error) {
	if observe == nil {
		observe = func(Step, string) {}
	}

	if err := creds.Check(); err != nil {
		return "", err
	}

	if audio.Empty() {
		return "", fmt.Errorf("%w: nothing recorded", failure.ErrValidationFailed)
	}

	observe(StepTranscribing, "")

	start := time.Now()

	transcript, err := p.transcriber.Transcribe(ctx, creds.APIKey, audio)
	if err != nil {
		p.logger.Warn("transcription failed", "error", err, "duration", time.Since(start))

		return "", failure.Classify(fmt.Errorf("failed to transcribe recording: %w", err))
	}

	p.logger.Info("transcription complete",
		"bytes", audio.Len(),
		"chars", len(transcript),
		"duration", time.Since(start))

	observe(StepTranscribed, transcript)
	observe(StepRelaying, transcript)

	start = time.Now()

	if err := p.relay.Relay(ctx, transcript, creds.Email); err != nil {
		p.logger.Warn("relay failed", "error", err, "duration", time.Since(start))

		return transcript, failure.Classify(fmt.Errorf("failed to relay transcript: %w", err))
	}

	p.logger.Info("relay complete", "duration", time.Since(start))

	observe(StepRelayed, transcript)

	return transcript, nil
}
