package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/alkime/voxrelay/internal/config"
)

// CLI defines the voxrelay command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Record, transcribe and relay from the terminal UI"`

	// Subcommands
	Process ProcessCmd `cmd:"" help:"Transcribe and relay an existing recording"`
	Devices DevicesCmd `cmd:"" help:"List capture devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
	Serve   ServeCmd   `cmd:"" help:"Expose the pipeline over HTTP"`
}

func main() {
	// Text logger until a command picks its own
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxrelay: %v\n", err)
		os.Exit(1)
	}

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("voxrelay"),
		kong.Description("Capture microphone and app audio, transcribe it and hand the text to a workflow."),
		kong.Bind(cfg),
	)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
