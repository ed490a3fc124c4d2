// Package audio captures the microphone and a secondary (loopback or monitor)
// source, mixes them into one mono stream and encodes it into an artifact.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/alkime/voxrelay/internal/failure"
	"github.com/alkime/voxrelay/internal/session"
	"github.com/alkime/voxrelay/pkg/channels"
)

var _ session.Capturer = (*MixedCapturer)(nil)

// CaptureConfig configures a MixedCapturer.
type CaptureConfig struct {
	Mic MicConstraints
	// Source selects the secondary device by name. Empty picks the system
	// loopback on Windows and a monitor source elsewhere.
	Source string
	Codec  Codec
}

type deviceOpener func(conf DeviceConfig, logger *slog.Logger) Device

// MixedCapturer opens both inputs for each recording.
type MixedCapturer struct {
	conf   CaptureConfig
	meter  *Meter
	logger *slog.Logger

	newDevice deviceOpener
	windows   bool
}

// NewMixedCapturer creates a capturer. meter may be nil.
func NewMixedCapturer(conf CaptureConfig, meter *Meter, logger *slog.Logger) *MixedCapturer {
	if logger == nil {
		logger = slog.Default()
	}

	if conf.Codec == "" {
		conf.Codec = CodecWebMOpus
	}

	return &MixedCapturer{
		conf:      conf,
		meter:     meter,
		logger:    logger,
		newDevice: NewDevice,
		windows:   runtime.GOOS == "windows",
	}
}

// Open requests both devices, wires them through the mixer into the encoder
// and starts them. On any failure everything opened so far is released and
// the error wraps failure.ErrCaptureUnavailable.
func (c *MixedCapturer) Open(ctx context.Context) (session.Capture, error) {
	micConf := c.conf.Mic.deviceConfig()
	secConf := secondaryDeviceConfig(c.conf.Source, c.windows)

	if c.conf.Mic.EchoCancellation || c.conf.Mic.NoiseSuppression {
		c.logger.Debug("microphone processing requested but not available from the capture backend",
			"echoCancellation", c.conf.Mic.EchoCancellation,
			"noiseSuppression", c.conf.Mic.NoiseSuppression)
	}

	rec := &recording{ //nolint:exhaustruct // filled in below
		codec:  c.conf.Codec,
		meter:  c.meter,
		logger: c.logger,
		stopC:  make(chan struct{}),
	}

	fail := func(what string, err error) (session.Capture, error) {
		rec.Release()

		return nil, fmt.Errorf("%w: failed to %s: %w", failure.ErrCaptureUnavailable, what, err)
	}

	rec.mic = c.newDevice(micConf, c.logger)

	micC, err := rec.mic.Capture(ctx)
	if err != nil {
		return fail("open microphone", err)
	}

	rec.secondary = c.newDevice(secConf, c.logger)

	secC, err := rec.secondary.Capture(ctx)
	if err != nil {
		return fail("open secondary audio source", err)
	}

	rec.buffer = artifact.NewChunkBuffer()

	rec.encoder, err = NewEncoder(c.conf.Codec, rec.buffer)
	if err != nil {
		return fail("create encoder", err)
	}

	rec.mixer = NewMixer(micConf.SampleRate, secConf.SampleRate)

	if c.meter != nil {
		c.meter.Reset()
	}

	rec.wg.Go(func() {
		rec.run(micC, secC)
	})

	if err := rec.mic.Start(ctx); err != nil {
		return fail("start microphone", err)
	}

	if err := rec.secondary.Start(ctx); err != nil {
		return fail("start secondary audio source", err)
	}

	c.logger.Info("capture started",
		"micRate", micConf.SampleRate,
		"secondary", secondaryLabel(secConf),
		"codec", c.conf.Codec)

	return rec, nil
}

func secondaryLabel(conf DeviceConfig) string {
	if conf.Loopback {
		return "loopback"
	}

	return conf.DeviceName
}

// recording is one running capture. The run goroutine owns the mixer and
// the encoder until it exits.
type recording struct {
	codec  Codec
	meter  *Meter
	logger *slog.Logger

	mic       Device
	secondary Device
	mixer     *Mixer
	encoder   Encoder
	buffer    *artifact.ChunkBuffer

	stopC    chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	runErr   error

	releaseOnce sync.Once
}

func (r *recording) run(micC, secC <-chan DataPacket) {
	for {
		select {
		case pkt := <-micC:
			if err := r.mixMic(pkt); err != nil {
				r.runErr = err

				return
			}
		case pkt := <-secC:
			r.mixer.PushSecondary(BytesToInt16(pkt))
		case <-r.stopC:
			r.runErr = r.drain(micC, secC)

			return
		}
	}
}

// drain processes what the devices delivered before they stopped and flushes
// the partial frame.
func (r *recording) drain(micC, secC <-chan DataPacket) error {
	for _, pkt := range channels.Drain(secC) {
		r.mixer.PushSecondary(BytesToInt16(pkt))
	}

	for _, pkt := range channels.Drain(micC) {
		if err := r.mixMic(pkt); err != nil {
			return err
		}
	}

	if frame := r.mixer.Flush(); frame != nil {
		return r.emit(frame)
	}

	return nil
}

func (r *recording) mixMic(pkt DataPacket) error {
	for _, frame := range r.mixer.PushMic(BytesToInt16(pkt)) {
		if err := r.emit(frame); err != nil {
			return err
		}
	}

	return nil
}

func (r *recording) emit(frame []int16) error {
	if r.meter != nil {
		r.meter.Write(frame)
	}

	return r.encoder.Encode(frame)
}

// Finish stops both devices, drains the mixer, finalizes the encoder and
// returns the concatenated chunks.
func (r *recording) Finish(ctx context.Context) (artifact.Artifact, error) {
	var errs []error

	for _, d := range []Device{r.mic, r.secondary} {
		if err := d.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	r.stop()
	r.wg.Wait()

	if r.runErr != nil {
		errs = append(errs, r.runErr)
	}

	if err := r.encoder.Close(); err != nil {
		errs = append(errs, err)
	}

	// the webm writer closes the buffer through the track; mp3 closes it directly
	_ = r.buffer.Close()

	r.logger.Debug("capture finished",
		"chunks", r.buffer.Chunks(),
		"bytes", r.buffer.Size(),
		"micDropped", r.mic.Dropped(),
		"secondaryDropped", r.secondary.Dropped(),
		"secondaryTrimmed", r.mixer.Trimmed())

	if err := errors.Join(errs...); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to finish capture: %w", err)
	}

	return r.buffer.Artifact(r.codec.MIMEType(), r.codec.Filename()), nil
}

// Release stops the run loop and frees both devices. Safe to call repeatedly
// and on a partially opened recording.
func (r *recording) Release() {
	r.releaseOnce.Do(func() {
		ctx := context.Background()

		for _, d := range []Device{r.mic, r.secondary} {
			if d == nil {
				continue
			}

			if err := d.Stop(ctx); err != nil {
				r.logger.Warn("failed to stop capture device", "error", err)
			}
		}

		r.stop()
		r.wg.Wait()

		for _, d := range []Device{r.mic, r.secondary} {
			if d != nil {
				d.Dealloc(ctx)
			}
		}
	})
}

func (r *recording) stop() {
	r.stopOnce.Do(func() { close(r.stopC) })
}
