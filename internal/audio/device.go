package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/alkime/voxrelay/pkg/channels"
	"github.com/alkime/voxrelay/pkg/collections"
	"github.com/gen2brain/malgo"
)

// ErrDeviceNotFound is returned when no capture device matches a name.
var ErrDeviceNotFound = errors.New("capture device not found")

// packetBuffer is how many callback packets may queue before drops start.
const packetBuffer = 256

type Device interface {
	// Capture initializes the underlying device and returns the channel that
	// receives sampled bytes once Start() is called.
	Capture(ctx context.Context) (<-chan DataPacket, error)

	// Start starts the audio device.
	Start(ctx context.Context) error
	// Stop stops the audio device. After Stop returns no more packets are
	// delivered. If the device has already been deallocated this is a no-op.
	Stop(ctx context.Context) error

	// Dropped is the number of packets discarded because the reader lagged.
	Dropped() int64

	// Dealloc deallocates the underlying audio device. Safe to call repeatedly.
	Dealloc(ctx context.Context)
}

type device struct {
	conf   DeviceConfig
	logger *slog.Logger

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
	deviceID malgo.DeviceID
	dropped  atomic.Int64
}

// NewDevice returns a malgo-backed capture device.
func NewDevice(conf DeviceConfig, logger *slog.Logger) Device {
	if logger == nil {
		logger = slog.Default()
	}

	return &device{conf: conf, logger: logger} //nolint:exhaustruct // malgo handles are set by Capture
}

func (d *device) Capture(ctx context.Context) (<-chan DataPacket, error) {
	if d.mgDevice != nil {
		return nil, errors.New("device already captured")
	}

	dataC := make(chan DataPacket, packetBuffer)

	var err error
	d.mgCtx, d.mgDevice, err = d.allocMGDevice(dataC)
	if err != nil {
		return nil, fmt.Errorf("failed to create malgo capture device: %w", err)
	}

	return dataC, nil
}

func (d *device) Start(_ context.Context) error {
	if d.mgDevice == nil {
		return errors.New("device nil. have you Capture()ed it?")
	}

	if d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop(_ context.Context) error {
	if d.mgDevice == nil || !d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) Dropped() int64 {
	return d.dropped.Load()
}

func (d *device) Dealloc(_ context.Context) {
	if d.mgDevice != nil {
		d.mgDevice.Uninit()
		d.mgDevice = nil
	}

	uninitializeContext(d.mgCtx, d.logger)
	d.mgCtx = nil
}

func (d *device) allocMGDevice(dataC chan DataPacket) (*malgo.AllocatedContext, *malgo.Device, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devType := malgo.Capture
	if d.conf.Loopback {
		devType = malgo.Loopback
	}

	devCnf := malgo.DefaultDeviceConfig(devType)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.Channels) //nolint:gosec // channel counts are tiny
	devCnf.SampleRate = uint32(d.conf.SampleRate)     //nolint:gosec // sample rates are positive

	if d.conf.DeviceName != "" && !d.conf.Loopback {
		infos, err := mgCtx.Devices(malgo.Capture)
		if err != nil {
			uninitializeContext(mgCtx, d.logger)

			return nil, nil, fmt.Errorf("failed to get capture devices: %w", err)
		}

		info, ok := collections.First(infos, func(mdi malgo.DeviceInfo) bool {
			return nameMatches(mdi.Name(), d.conf.DeviceName)
		})
		if !ok {
			uninitializeContext(mgCtx, d.logger)

			return nil, nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, d.conf.DeviceName)
		}

		d.deviceID = info.ID
		devCnf.Capture.DeviceID = d.deviceID.Pointer()
		d.logger.Debug("selected capture device", "name", info.Name())
	}

	callBacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the samples buffer after the callback returns
			if err := channels.SendNonBlock(dataC, bytes.Clone(samples)); err != nil {
				d.dropped.Add(1)
			}
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callBacks)
	if err != nil {
		uninitializeContext(mgCtx, d.logger)

		return nil, nil, fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	return mgCtx, mgDevice, nil
}

// Info describes a capture device.
type Info struct {
	Name      string
	IsDefault bool
	Formats   []string
}

// ListCaptureDevices enumerates the capture devices the backend can see.
func ListCaptureDevices(_ context.Context) ([]Info, error) {
	// An empty context is enough for enumeration.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx, slog.Default())

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	return collections.Apply(captureDevices, malgoDeviceInfoToInfo), nil
}

// MatchDevices returns the devices whose name contains name, case-insensitively.
func MatchDevices(infos []Info, name string) []Info {
	return collections.Filter(infos, func(i Info) bool {
		return nameMatches(i.Name, name)
	})
}

func nameMatches(deviceName, want string) bool {
	return strings.Contains(strings.ToLower(deviceName), strings.ToLower(want))
}

func malgoDeviceInfoToInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, len(mdi.Formats))
	for i, mf := range mdi.Formats {
		formats[i] = fmt.Sprintf("%d-bit, %d ch, %d Hz",
			malgo.SampleSizeInBytes(mf.Format)*8,
			mf.Channels, mf.SampleRate)
	}

	return Info{
		Name:      mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

// DataPacket is one callback's worth of S16LE samples.
type DataPacket = []byte

func uninitializeContext(deviceCtx *malgo.AllocatedContext, logger *slog.Logger) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		logger.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
