// Package transcription sends recorded audio to a Whisper-compatible
// speech-to-text endpoint.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

// DefaultModel is the transcription model used when none is configured.
const DefaultModel = "whisper-1"

// Config configures the transcription client.
type Config struct {
	// BaseURL overrides the OpenAI API base (e.g. a self-hosted Whisper server).
	BaseURL string
	// Model is sent as the multipart "model" field.
	Model string
	// Timeout bounds a single request. Zero means no client-side timeout.
	Timeout time.Duration
}

// Client handles transcription requests. The API key is passed per call
// since it belongs to the session, not to the client.
type Client struct {
	config Config
}

// NewClient creates a new transcription client.
func NewClient(conf Config) *Client {
	if conf.Model == "" {
		conf.Model = DefaultModel
	}

	return &Client{config: conf}
}

// Transcribe uploads the artifact and returns the transcript text.
//
// A non-2xx response yields failure.ErrTranscriptionFailed. A 2xx response
// without a string "text" field yields failure.ErrUnexpectedFailure.
func (c *Client) Transcribe(ctx context.Context, apiKey string, audio artifact.Artifact) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("%w: API key required", failure.ErrValidationFailed)
	}

	if audio.Empty() {
		return "", fmt.Errorf("%w: recording is empty", failure.ErrUnexpectedFailure)
	}

	client := openai.NewClient(c.requestOptions(apiKey)...)

	params := openai.AudioTranscriptionNewParams{ //nolint:exhaustruct // only File and Model required
		File:  openai.File(audio.Reader(), audio.Filename, audio.MIMEType),
		Model: openai.AudioModel(c.config.Model),
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: service returned status %d", failure.ErrTranscriptionFailed, apiErr.StatusCode)
		}

		return "", fmt.Errorf("failed to call transcription service: %w", err)
	}

	return textFrom(resp.RawJSON())
}

func (c *Client) requestOptions(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// failures are terminal; the user restarts by hand
		option.WithMaxRetries(0),
	}

	if c.config.BaseURL != "" {
		base := c.config.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}

		opts = append(opts, option.WithBaseURL(base))
	}

	if c.config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(c.config.Timeout))
	}

	return opts
}

// textFrom pulls the transcript out of the raw response body rather than
// trusting the decoded struct, which zero-fills a missing field.
func textFrom(raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("%w: transcription response is not JSON", failure.ErrUnexpectedFailure)
	}

	text := gjson.Get(raw, "text")
	if !text.Exists() {
		return "", fmt.Errorf("%w: transcription response has no text field", failure.ErrUnexpectedFailure)
	}

	if text.Type != gjson.String {
		return "", fmt.Errorf("%w: transcription text is %s, not a string", failure.ErrUnexpectedFailure, text.Type)
	}

	return text.String(), nil
}
