package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/audio"
	"github.com/alkime/voxrelay/internal/config"
	"github.com/alkime/voxrelay/internal/keyring"
	"github.com/alkime/voxrelay/internal/logger"
	"github.com/alkime/voxrelay/internal/pipeline"
	"github.com/alkime/voxrelay/internal/validate"
)

// ProcessCmd runs the pipeline on a recording that already exists.
type ProcessCmd struct {
	File   string `arg:"" type:"existingfile" help:"Recording to upload (.webm or .mp3)"`
	Email  string `flag:"" required:"" env:"VOXRELAY_EMAIL" help:"Email forwarded with the transcript"`
	APIKey string `flag:"" name:"api-key" env:"OPENAI_API_KEY" help:"Transcription API key (falls back to the keychain)"`
}

// Run executes the process command.
func (c *ProcessCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.New(cfg, os.Stderr, logger.FormatText)

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	codec := audio.CodecWebMOpus
	if strings.EqualFold(filepath.Ext(c.File), ".mp3") {
		codec = audio.CodecMP3
	}

	proc, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	creds := validate.Credentials{
		APIKey: keyring.Lookup(keyring.OpenAI, firstNonEmpty(c.APIKey, cfg.OpenAIAPIKey)),
		Email:  c.Email,
	}

	transcript, err := proc.Run(ctx, creds, artifact.Artifact{
		Data:     data,
		MIMEType: codec.MIMEType(),
		Filename: codec.Filename(),
	}, func(step pipeline.Step, _ string) {
		log.Debug("pipeline step", "step", step)
	})
	if transcript != "" {
		fmt.Println(transcript)
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "transcript sent to workflow")

	return nil
}
