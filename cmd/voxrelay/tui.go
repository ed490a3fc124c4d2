package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alkime/voxrelay/internal/audio"
	"github.com/alkime/voxrelay/internal/config"
	"github.com/alkime/voxrelay/internal/keyring"
	"github.com/alkime/voxrelay/internal/logger"
	"github.com/alkime/voxrelay/internal/session"
	"github.com/alkime/voxrelay/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	APIKey string `flag:"" name:"api-key" env:"OPENAI_API_KEY" help:"Pre-fill the API key (falls back to the keychain)"`
	Email  string `flag:"" env:"VOXRELAY_EMAIL" help:"Pre-fill the email field"`
	Source string `flag:"" help:"Secondary capture device name (default: loopback or a monitor source)"`
	Codec  string `flag:"" enum:",webm,mp3" default:"" help:"Recording codec: webm (opus) or mp3"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, closeLog, err := logger.ForTUI(cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	codec, err := audio.ParseCodec(firstNonEmpty(c.Codec, cfg.AudioCodec))
	if err != nil {
		return err
	}

	proc, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	meter := audio.NewMeter(audio.DefaultMeterWindow, audio.GraphSampleRate/2)
	capturer := audio.NewMixedCapturer(audio.CaptureConfig{
		Mic:    audio.DefaultMicConstraints(),
		Source: firstNonEmpty(c.Source, cfg.AudioSource),
		Codec:  codec,
	}, meter, log)

	ctrl, err := session.NewController(capturer, proc, log)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer ctrl.Close()

	model := tui.New(ctx, ctrl, tui.Options{
		APIKey: keyring.Lookup(keyring.OpenAI, firstNonEmpty(c.APIKey, cfg.OpenAIAPIKey)),
		Email:  c.Email,
		Levels: meter,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
