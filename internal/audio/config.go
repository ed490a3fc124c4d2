package audio

import (
	"time"

	"github.com/gen2brain/malgo"
)

const (
	// GraphSampleRate is the rate everything is mixed and encoded at.
	GraphSampleRate = 48000
	// MicSampleRate is the rate requested from the microphone.
	MicSampleRate = 44100
	// FrameDuration is the length of one mixed frame.
	FrameDuration = 20 * time.Millisecond
	// FrameSamples is the number of mono samples in one mixed frame.
	FrameSamples = GraphSampleRate * int(FrameDuration/time.Millisecond) / 1000

	// monitorHint picks a PulseAudio/PipeWire monitor source when no
	// secondary device name is given.
	monitorHint = "monitor"
)

// DeviceConfig describes one capture device.
type DeviceConfig struct {
	Format     malgo.FormatType
	Channels   int
	SampleRate int
	// DeviceName selects the first capture device whose name contains it,
	// case-insensitively. Empty means the system default.
	DeviceName string
	// Loopback captures what the system plays. Only WASAPI supports it.
	Loopback bool
}

// MicConstraints is what the caller asks of the microphone.
type MicConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultMicConstraints matches what a browser-style voice capture asks for.
func DefaultMicConstraints() MicConstraints {
	return MicConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       MicSampleRate,
	}
}

func (m MicConstraints) deviceConfig() DeviceConfig {
	rate := m.SampleRate
	if rate <= 0 {
		rate = MicSampleRate
	}

	return DeviceConfig{
		Format:     malgo.FormatS16,
		Channels:   1,
		SampleRate: rate,
	}
}

func secondaryDeviceConfig(source string, windows bool) DeviceConfig {
	conf := DeviceConfig{
		Format:     malgo.FormatS16,
		Channels:   1,
		SampleRate: GraphSampleRate,
		DeviceName: source,
	}

	if source == "" {
		if windows {
			conf.Loopback = true
		} else {
			conf.DeviceName = monitorHint
		}
	}

	return conf
}
