package tui_test

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/session"
	"github.com/alkime/voxrelay/internal/tui"
	"github.com/alkime/voxrelay/internal/validate"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	interval, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		interval: 50 * time.Millisecond,
		timeout:  3 * time.Second,
	}
}

func (o outputChecker) checkString(t *testing.T, r io.Reader, substr string) {
	t.Helper()
	teatest.WaitFor(t, r, func(buf []byte) bool {
		return bytes.Contains(buf, []byte(substr))
	},
		teatest.WithCheckInterval(o.interval),
		teatest.WithDuration(o.timeout))
}

type stubCapture struct{}

func (stubCapture) Finish(context.Context) (artifact.Artifact, error) {
	return artifact.Artifact{Data: []byte("webm"), MIMEType: artifact.MIMETypeWebMOpus, Filename: "recording.webm"}, nil
}

func (stubCapture) Release() {}

type stubCapturer struct {
	opens atomic.Int32
}

func (s *stubCapturer) Open(context.Context) (session.Capture, error) {
	s.opens.Add(1)

	return stubCapture{}, nil
}

type stubProcessor struct {
	transcript string
	err        error
}

func (s stubProcessor) Run(
	_ context.Context,
	_ validate.Credentials,
	_ artifact.Artifact,
	observe pipeline.Observer,
) (string, error) {
	observe(pipeline.StepTranscribed, s.transcript)

	return s.transcript, s.err
}

func newTestModel(t *testing.T, capturer session.Capturer, proc session.Processor, opts tui.Options) (*teatest.TestModel, *session.Controller) {
	t.Helper()

	ctrl, err := session.NewController(capturer, proc, nil)
	require.NoError(t, err)

	m := tui.New(context.Background(), ctrl, opts)
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 40))

	return tm, ctrl
}

func TestModel_RecordAndProcess(t *testing.T) {
	capturer := &stubCapturer{}
	tm, ctrl := newTestModel(t, capturer, stubProcessor{transcript: "hello world"}, tui.Options{})
	checker := defaultChecker()

	checker.checkString(t, tm.Output(), "[ Start ]")

	tm.Type("sk-test")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Type("a@b.co")
	tm.Send(tea.KeyMsg{Type: tea.KeyTab})

	require.Eventually(t, ctrl.CanStart, time.Second, 20*time.Millisecond)

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	checker.checkString(t, tm.Output(), "[ Done ]")
	assert.Equal(t, int32(1), capturer.opens.Load())

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	checker.checkString(t, tm.Output(), "[ Process ]")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	checker.checkString(t, tm.Output(), session.StatusSucceeded)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	snap := ctrl.Snapshot()
	assert.Equal(t, "hello world", snap.Transcript)
	assert.Equal(t, session.StateIdle, snap.State)
}

func TestModel_InvalidEmailBlocksStart(t *testing.T) {
	capturer := &stubCapturer{}
	tm, ctrl := newTestModel(t, capturer, stubProcessor{}, tui.Options{APIKey: "sk-test"})
	checker := defaultChecker()

	// a pre-filled key moves focus to the email field
	tm.Type("not-an-email")
	checker.checkString(t, tm.Output(), "invalid email")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	assert.Zero(t, capturer.opens.Load(), "no capture may be opened")
	assert.False(t, ctrl.CanStart())
	assert.Equal(t, session.StateIdle, ctrl.Snapshot().State)
}

func TestModel_ProcessFailureShowsError(t *testing.T) {
	tm, ctrl := newTestModel(t, &stubCapturer{},
		stubProcessor{err: assert.AnError},
		tui.Options{APIKey: "sk-test", Email: "a@b.co"})
	checker := defaultChecker()

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	checker.checkString(t, tm.Output(), "[ Done ]")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	checker.checkString(t, tm.Output(), "[ Process ]")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	checker.checkString(t, tm.Output(), "Error:")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	snap := ctrl.Snapshot()
	assert.False(t, snap.Processing())
	assert.Equal(t, session.StateIdle, snap.State)
}

func TestModel_DiscardRecording(t *testing.T) {
	tm, ctrl := newTestModel(t, &stubCapturer{}, stubProcessor{},
		tui.Options{APIKey: "sk-test", Email: "a@b.co"})
	checker := defaultChecker()

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	checker.checkString(t, tm.Output(), "[ Done ]")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	checker.checkString(t, tm.Output(), "[ Process ]")

	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	checker.checkString(t, tm.Output(), session.StatusDiscarded)

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	assert.Equal(t, session.StateIdle, ctrl.Snapshot().State)
}
