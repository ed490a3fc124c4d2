package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTranscriber struct {
	result string
	err    error
	calls  int
	apiKey string
}

func (m *mockTranscriber) Transcribe(_ context.Context, apiKey string, _ artifact.Artifact) (string, error) {
	m.calls++
	m.apiKey = apiKey
	return m.result, m.err
}

type mockRelay struct {
	err        error
	calls      int
	transcript string
	email      string
}

func (m *mockRelay) Relay(_ context.Context, transcript, email string) error {
	m.calls++
	m.transcript = transcript
	m.email = email
	return m.err
}

var (
	goodCreds = validate.Credentials{APIKey: "sk-test", Email: "a@b.co"}
	audio     = artifact.Artifact{Data: []byte("webm"), MIMEType: artifact.MIMETypeWebMOpus, Filename: "recording.webm"}
)

func TestNew_NilCollaborators(t *testing.T) {
	t.Parallel()

	_, err := pipeline.New(nil, &mockRelay{}, nil)
	require.Error(t, err)

	_, err = pipeline.New(&mockTranscriber{}, nil, nil)
	require.Error(t, err)
}

func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	tr := &mockTranscriber{result: "hello world"}
	rl := &mockRelay{}
	p, err := pipeline.New(tr, rl, nil)
	require.NoError(t, err)

	var steps []pipeline.Step

	text, err := p.Run(context.Background(), goodCreds, audio, func(step pipeline.Step, _ string) {
		steps = append(steps, step)
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "sk-test", tr.apiKey)
	assert.Equal(t, "hello world", rl.transcript)
	assert.Equal(t, "a@b.co", rl.email)
	assert.Equal(t, []pipeline.Step{
		pipeline.StepTranscribing,
		pipeline.StepTranscribed,
		pipeline.StepRelaying,
		pipeline.StepRelayed,
	}, steps)
}

func TestRun_TranscriptionFailureSkipsRelay(t *testing.T) {
	t.Parallel()

	tr := &mockTranscriber{err: fmt.Errorf("%w: service returned status 500", failure.ErrTranscriptionFailed)}
	rl := &mockRelay{}
	p, err := pipeline.New(tr, rl, nil)
	require.NoError(t, err)

	text, err := p.Run(context.Background(), goodCreds, audio, nil)

	require.ErrorIs(t, err, failure.ErrTranscriptionFailed)
	assert.Empty(t, text)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 0, rl.calls, "relay must not run after a failed transcription")
}

func TestRun_RelayFailureKeepsTranscript(t *testing.T) {
	t.Parallel()

	tr := &mockTranscriber{result: "hello"}
	rl := &mockRelay{err: fmt.Errorf("%w: service returned status 502", failure.ErrRelayFailed)}
	p, err := pipeline.New(tr, rl, nil)
	require.NoError(t, err)

	text, err := p.Run(context.Background(), goodCreds, audio, nil)

	require.ErrorIs(t, err, failure.ErrRelayFailed)
	assert.Equal(t, "hello", text)
}

func TestRun_UnclassifiedErrorsBecomeUnexpected(t *testing.T) {
	t.Parallel()

	tr := &mockTranscriber{err: errors.New("connection reset")}
	p, err := pipeline.New(tr, &mockRelay{}, nil)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), goodCreds, audio, nil)

	require.ErrorIs(t, err, failure.ErrUnexpectedFailure)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRun_RejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		creds validate.Credentials
		audio artifact.Artifact
	}{
		{name: "no key", creds: validate.Credentials{Email: "a@b.co"}, audio: audio},
		{name: "bad email", creds: validate.Credentials{APIKey: "k", Email: "nope"}, audio: audio},
		{name: "empty audio", creds: goodCreds, audio: artifact.Artifact{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := &mockTranscriber{}
			rl := &mockRelay{}
			p, err := pipeline.New(tr, rl, nil)
			require.NoError(t, err)

			_, err = p.Run(context.Background(), tt.creds, tt.audio, nil)

			require.ErrorIs(t, err, failure.ErrValidationFailed)
			assert.Zero(t, tr.calls)
			assert.Zero(t, rl.calls)
		})
	}
}
