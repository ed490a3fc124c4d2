// Package session implements the record → stop → process lifecycle of a
// single capture session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/validate"
)

// Precondition rejections. They leave state and status untouched.
var (
	ErrBusy            = errors.New("session busy")
	ErrNotRecording    = errors.New("not recording")
	ErrNothingRecorded = errors.New("nothing recorded")
)

// Status lines shown to the user.
const (
	StatusReady      = "Enter your API key and email to start."
	StatusStarting   = "Requesting audio devices..."
	StatusRecording  = "Recording... press Done to stop."
	StatusFinalizing = "Finalizing recording..."
	StatusRecorded   = "Recording stopped. Ready to process."
	StatusDiscarded  = "Recording discarded."
	StatusTranscribe = "Transcribing audio..."
	StatusRelaying   = "Transcription complete. Sending to workflow..."
	StatusSucceeded  = "Done! Transcript sent to workflow."
)

// Capturer opens the mixed microphone + secondary audio capture.
type Capturer interface {
	Open(ctx context.Context) (Capture, error)
}

// Capture is a running capture.
type Capture interface {
	// Finish stops both inputs, finalizes encoding and returns the artifact.
	Finish(ctx context.Context) (artifact.Artifact, error)
	// Release frees every device and the mixer. Safe to call repeatedly.
	Release()
}

// Processor runs the transcribe → relay pipeline.
type Processor interface {
	Run(
		ctx context.Context,
		creds validate.Credentials,
		audio artifact.Artifact,
		observe pipeline.Observer,
	) (string, error)
}

// Snapshot is a copy of the session's user-visible state.
type Snapshot struct {
	State         State
	Status        string
	Transcript    string
	ArtifactBytes int
	Err           error
}

// Processing reports whether a pipeline run is in flight.
func (s Snapshot) Processing() bool {
	return s.State == StateProcessing
}

// Controller owns one capture session. All methods are safe for concurrent
// use; blocking work (device setup, encoding, network) runs without holding
// the lock, with the state machine acting as the in-flight guard.
type Controller struct {
	capturer  Capturer
	processor Processor
	logger    *slog.Logger

	mu         sync.Mutex
	machine    Machine
	creds      validate.Credentials
	capture    Capture
	audio      *artifact.Artifact
	transcript string
	status     string
	lastErr    error
}

// NewController creates an idle controller.
func NewController(capturer Capturer, processor Processor, logger *slog.Logger) (*Controller, error) {
	if capturer == nil {
		return nil, errors.New("capturer cannot be nil")
	}

	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{ //nolint:exhaustruct // zero values are the idle session
		capturer:  capturer,
		processor: processor,
		logger:    logger,
		status:    StatusReady,
	}, nil
}

// SetCredentials replaces the in-memory credentials.
func (c *Controller) SetCredentials(apiKey, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.creds = validate.Credentials{APIKey: apiKey, Email: email}
}

// CanStart reports whether Start would be accepted.
func (c *Controller) CanStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.machine.Current() == StateIdle && c.creds.Valid()
}

// CanProcess reports whether Process would be accepted.
func (c *Controller) CanProcess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.machine.Current() == StateRecorded && c.audio != nil && c.creds.Valid()
}

// Snapshot returns the current user-visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:      c.machine.Current(),
		Status:     c.status,
		Transcript: c.transcript,
		Err:        c.lastErr,
	}

	if c.audio != nil {
		snap.ArtifactBytes = c.audio.Len()
	}

	return snap
}

// Start validates the credentials, opens both audio inputs and begins
// recording. Invalid credentials are rejected before any device is touched.
// If the capture cannot be opened the session stays idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.machine.Current() != StateIdle {
		c.mu.Unlock()

		return fmt.Errorf("%w: cannot start while %s", ErrBusy, c.machine.Current())
	}

	if err := c.creds.Check(); err != nil {
		c.failLocked(err)
		c.mu.Unlock()

		return err
	}

	// claim the session before releasing the lock so a second Start is refused
	c.transitionLocked(StateRecording)
	c.transcript = ""
	c.lastErr = nil
	c.status = StatusStarting
	c.mu.Unlock()

	capture, err := c.capturer.Open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if !errors.Is(err, failure.ErrCaptureUnavailable) {
			err = fmt.Errorf("%w: %w", failure.ErrCaptureUnavailable, err)
		}

		c.transitionLocked(StateIdle)
		c.failLocked(err)

		return err
	}

	c.capture = capture
	c.status = StatusRecording

	return nil
}

// Stop finalizes the recording into an artifact and releases the devices.
// Calling it when not recording returns ErrNotRecording and changes nothing.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()

	if c.machine.Current() != StateRecording || c.capture == nil {
		c.mu.Unlock()

		return ErrNotRecording
	}

	capture := c.capture
	c.capture = nil
	c.status = StatusFinalizing
	c.mu.Unlock()

	audio, err := capture.Finish(ctx)
	capture.Release()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.transitionLocked(StateIdle)
		c.failLocked(failure.Classify(fmt.Errorf("failed to finalize recording: %w", err)))

		return c.lastErr
	}

	c.audio = &audio
	c.transitionLocked(StateRecorded)
	c.status = StatusRecorded

	c.logger.Info("recording captured", "bytes", audio.Len(), "mime", audio.MIMEType)

	return nil
}

// Reset discards a captured recording and returns to idle. It does nothing
// in any other state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() != StateRecorded {
		return
	}

	c.audio = nil
	c.transitionLocked(StateIdle)
	c.status = StatusDiscarded
}

// Process sends the recording through the pipeline. Whatever happens, the
// session ends up idle with the recording discarded and a status line that
// describes the outcome.
func (c *Controller) Process(ctx context.Context) (err error) {
	c.mu.Lock()

	switch {
	case c.machine.Current() == StateProcessing:
		c.mu.Unlock()

		return fmt.Errorf("%w: already processing", ErrBusy)
	case c.machine.Current() != StateRecorded || c.audio == nil:
		c.mu.Unlock()

		return ErrNothingRecorded
	}

	creds := c.creds
	if err := creds.Check(); err != nil {
		// stay in Recorded so the user can fix the field and retry
		c.failLocked(err)
		c.mu.Unlock()

		return err
	}

	audio := *c.audio
	c.transitionLocked(StateProcessing)
	c.transcript = ""
	c.lastErr = nil
	c.status = StatusTranscribe
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during processing: %v", failure.ErrUnexpectedFailure, r)
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		c.audio = nil
		c.transitionLocked(StateIdle)

		if err != nil {
			c.failLocked(err)

			return
		}

		c.status = StatusSucceeded
	}()

	_, err = c.processor.Run(ctx, creds, audio, c.observe)

	return failure.Classify(err)
}

// Close releases an in-progress capture, if any. The session returns to idle.
func (c *Controller) Close() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil

	if capture != nil {
		c.transitionLocked(StateIdle)
	}
	c.mu.Unlock()

	if capture != nil {
		capture.Release()
	}
}

func (c *Controller) observe(step pipeline.Step, transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch step {
	case pipeline.StepTranscribing:
		c.status = StatusTranscribe
	case pipeline.StepTranscribed:
		c.transcript = transcript
	case pipeline.StepRelaying:
		c.status = StatusRelaying
	case pipeline.StepRelayed:
	}
}

func (c *Controller) transitionLocked(to State) {
	from := c.machine.Current()
	if err := c.machine.Transition(to); err != nil {
		// every call site checks the current state first
		c.logger.Error("session transition rejected", "error", err)

		return
	}

	c.logger.Debug("session transition", "from", from, "to", to)
}

func (c *Controller) failLocked(err error) {
	c.lastErr = err
	c.status = failure.Message(err)
	c.logger.Warn("session operation failed", "kind", failure.Code(err), "error", err)
}
