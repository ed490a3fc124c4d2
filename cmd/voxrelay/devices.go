package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alkime/voxrelay/internal/audio"
)

// DevicesCmd lists available capture devices.
type DevicesCmd struct {
	Match string `flag:"" help:"Only list devices whose name contains this"`
}

// Run executes the devices command.
func (c *DevicesCmd) Run() error {
	devices, err := audio.ListCaptureDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	if c.Match != "" {
		devices = audio.MatchDevices(devices, c.Match)
	}

	if len(devices) == 0 {
		fmt.Println("no capture devices found")

		return nil
	}

	for _, dev := range devices {
		marker := " "
		if dev.IsDefault {
			marker = "*"
		}

		fmt.Printf("%s %s\n", marker, dev.Name)
		if len(dev.Formats) > 0 {
			fmt.Printf("    %s\n", strings.Join(dev.Formats, "; "))
		}
	}

	fmt.Println("\n* default microphone. Pass --source with part of a name to pick the secondary input.")

	return nil
}
