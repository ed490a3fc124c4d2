// Package relay hands a finished transcript to the workflow-automation
// service.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/alkime/voxrelay/internal/failure"
	"github.com/go-resty/resty/v2"
)

// Request is the JSON body the workflow service expects.
type Request struct {
	WorkflowID string `json:"workflow_id"`
	Inputs     Inputs `json:"inputs"`
}

// Inputs are the workflow's input variables.
type Inputs struct {
	TranscribedText string `json:"transcribed_text"`
	UserEmail       string `json:"user_email"`
}

// Config configures the relay client.
type Config struct {
	URL        string
	WorkflowID string
	Timeout    time.Duration
}

// Client posts transcripts to the workflow endpoint. The endpoint is trusted;
// no auth header is sent.
type Client struct {
	config Config
	http   *resty.Client
}

// NewClient creates a relay client.
func NewClient(conf Config) *Client {
	httpClient := resty.New().
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if conf.Timeout > 0 {
		httpClient.SetTimeout(conf.Timeout)
	}

	return &Client{
		config: conf,
		http:   httpClient,
	}
}

// Relay posts the transcript. Any non-2xx status yields failure.ErrRelayFailed.
func (c *Client) Relay(ctx context.Context, transcript, email string) error {
	if c.config.URL == "" {
		return fmt.Errorf("%w: workflow URL not configured", failure.ErrValidationFailed)
	}

	body := Request{
		WorkflowID: c.config.WorkflowID,
		Inputs: Inputs{
			TranscribedText: transcript,
			UserEmail:       email,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to reach workflow service: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: service returned status %d", failure.ErrRelayFailed, resp.StatusCode())
	}

	return nil
}
