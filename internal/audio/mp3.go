package audio

import (
	"errors"
	"fmt"
	"io"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// DefaultMP3BufferThreshold is how many mono samples are batched before a
// shine encode pass (about 128 ms at GraphSampleRate).
const DefaultMP3BufferThreshold = 6144

type mp3Encoder struct {
	encoder   *mp3encoder.Encoder
	output    io.WriteCloser
	buffer    []int16
	threshold int
	closed    bool
}

func newMP3Encoder(w io.WriteCloser, threshold int) (*mp3Encoder, error) {
	if threshold <= 0 {
		return nil, errors.New("buffer threshold must be positive")
	}

	return &mp3Encoder{ //nolint:exhaustruct // closed starts false
		// shine-mp3 mis-steps through mono input, so samples are duplicated to stereo.
		encoder:   mp3encoder.NewEncoder(GraphSampleRate, 2),
		output:    w,
		buffer:    make([]int16, 0, threshold),
		threshold: threshold,
	}, nil
}

func (e *mp3Encoder) Encode(frame []int16) error {
	if e.closed {
		return errors.New("encoder closed")
	}

	e.buffer = append(e.buffer, frame...)
	if len(e.buffer) < e.threshold {
		return nil
	}

	return e.encodeBatch()
}

func (e *mp3Encoder) Close() error {
	if e.closed {
		return nil
	}

	e.closed = true

	if err := e.encodeBatch(); err != nil {
		return fmt.Errorf("failed to flush MP3 encoder: %w", err)
	}

	if err := e.output.Close(); err != nil {
		return fmt.Errorf("failed to close MP3 output: %w", err)
	}

	return nil
}

func (e *mp3Encoder) encodeBatch() error {
	if len(e.buffer) == 0 {
		return nil
	}

	// duplicate mono into L=R for the stereo encoder
	stereo := make([]int16, len(e.buffer)*2)
	for i, s := range e.buffer {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	e.buffer = e.buffer[:0]

	return nil
}
