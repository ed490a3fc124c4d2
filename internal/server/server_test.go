package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/config"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/server"
	"github.com/alkime/voxrelay/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	transcript string
	err        error

	calls int
	creds validate.Credentials
	audio artifact.Artifact
}

func (f *fakeProcessor) Run(
	_ context.Context,
	creds validate.Credentials,
	audio artifact.Artifact,
	_ pipeline.Observer,
) (string, error) {
	f.calls++
	f.creds = creds
	f.audio = audio

	return f.transcript, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		Port:           "8080",
		HSTSMaxAge:     31536000,
		CSPMode:        "relaxed",
		LogLevel:       "info",
		MaxUploadBytes: 1 << 20,
	}
}

func newServer(t *testing.T, proc server.Processor) http.Handler {
	t.Helper()

	srv, err := server.New(testConfig(), proc, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return srv.Router()
}

func uploadRequest(t *testing.T, apiKey, email, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if email != "" {
		require.NoError(t, mw.WriteField("email", email))
	}

	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	return req
}

type response struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
	Kind       string `json:"kind"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()

	var got response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	return got
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router := newServer(t, &fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "voxrelay")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestNew_NilProcessor(t *testing.T) {
	t.Parallel()

	_, err := server.New(testConfig(), nil, nil)
	require.Error(t, err)
}

func TestProcess_Success(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{transcript: "hello world"}
	router := newServer(t, proc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "sk-test", "a@b.co", "clip.webm", []byte("webm-bytes")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", decode(t, w).Transcript)

	require.Equal(t, 1, proc.calls)
	assert.Equal(t, validate.Credentials{APIKey: "sk-test", Email: "a@b.co"}, proc.creds)
	assert.Equal(t, []byte("webm-bytes"), proc.audio.Data)
	assert.Equal(t, "recording.webm", proc.audio.Filename)
	assert.Equal(t, artifact.MIMETypeWebMOpus, proc.audio.MIMEType)
}

func TestProcess_MP3Upload(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{transcript: "ok"}
	router := newServer(t, proc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "sk-test", "a@b.co", "memo.MP3", []byte("id3")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "recording.mp3", proc.audio.Filename)
	assert.Equal(t, artifact.MIMETypeMPEG, proc.audio.MIMEType)
}

func TestProcess_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		apiKey   string
		email    string
		filename string
		data     []byte
	}{
		{name: "missing key", email: "a@b.co", filename: "a.webm", data: []byte("x")},
		{name: "invalid email", apiKey: "sk-test", email: "nope", filename: "a.webm", data: []byte("x")},
		{name: "missing file", apiKey: "sk-test", email: "a@b.co"},
		{name: "empty file", apiKey: "sk-test", email: "a@b.co", filename: "a.webm", data: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			proc := &fakeProcessor{}
			router := newServer(t, proc)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, tt.apiKey, tt.email, tt.filename, tt.data))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_failed", decode(t, w).Kind)
			assert.Zero(t, proc.calls)
		})
	}
}

func TestProcess_PipelineFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "transcription failed",
			err:        fmt.Errorf("%w: service returned status 500", failure.ErrTranscriptionFailed),
			wantStatus: http.StatusBadGateway,
			wantKind:   "transcription_failed",
		},
		{
			name:       "relay failed keeps transcript",
			transcript: "hello world",
			err:        fmt.Errorf("%w: status 503", failure.ErrRelayFailed),
			wantStatus: http.StatusBadGateway,
			wantKind:   "relay_failed",
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "unexpected_failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newServer(t, &fakeProcessor{transcript: tt.transcript, err: tt.err})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, "sk-test", "a@b.co", "a.webm", []byte("x")))

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decode(t, w)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.transcript, got.Transcript)
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestProcess_UploadTooLarge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxUploadBytes = 1024

	proc := &fakeProcessor{}
	srv, err := server.New(cfg, proc, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, uploadRequest(t, "sk-test", "a@b.co", "a.webm", make([]byte, 4096)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, proc.calls)
}
