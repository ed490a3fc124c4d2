package main

import (
	"fmt"
	"log/slog"

	"github.com/alkime/voxrelay/internal/config"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/relay"
	"github.com/alkime/voxrelay/internal/transcription"
)

// newPipeline builds the transcribe → relay pipeline from configuration.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	if err := cfg.RequirePipeline(); err != nil {
		return nil, err
	}

	p, err := pipeline.New(
		transcription.NewClient(transcription.Config{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.TranscriptionModel,
			Timeout: cfg.RequestTimeout,
		}),
		relay.NewClient(relay.Config{
			URL:        cfg.RelayURL,
			WorkflowID: cfg.WorkflowID,
			Timeout:    cfg.RequestTimeout,
		}),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return p, nil
}
