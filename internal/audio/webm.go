package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/at-wat/ebml-go/webm"
	"gopkg.in/hraban/opus.v2"
)

const (
	opusCodecID = "A_OPUS"
	// opusPreSkip is the encoder delay at 48 kHz recommended by RFC 7845.
	opusPreSkip = 3840
	// maxOpusPacket is the largest packet libopus will produce.
	maxOpusPacket  = 4000
	trackTypeAudio = 2

	// finalizeTimeout bounds the wait for the muxer to flush and close
	// its output after the track is closed.
	finalizeTimeout = 5 * time.Second
)

type webmOpusEncoder struct {
	enc    *opus.Encoder
	track  webm.BlockWriteCloser
	packet []byte
	out    *notifyCloser

	timestampMs int64
	closed      bool
}

func newWebMOpusEncoder(w io.WriteCloser) (*webmOpusEncoder, error) {
	enc, err := opus.NewEncoder(GraphSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	out := &notifyCloser{WriteCloser: w, done: make(chan struct{})} //nolint:exhaustruct // once is ready to use

	tracks, err := webm.NewSimpleBlockWriter(out, []webm.TrackEntry{{
		Name:         "Audio",
		TrackNumber:  1,
		TrackUID:     1,
		CodecID:      opusCodecID,
		TrackType:    trackTypeAudio,
		CodecPrivate: opusHead(1, GraphSampleRate),
		Audio: &webm.Audio{
			SamplingFrequency: GraphSampleRate,
			Channels:          1,
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to create webm writer: %w", err)
	}

	if len(tracks) != 1 {
		return nil, errors.New("webm writer returned no audio track")
	}

	return &webmOpusEncoder{ //nolint:exhaustruct // timestamps start at zero
		enc:    enc,
		track:  tracks[0],
		packet: make([]byte, maxOpusPacket),
		out:    out,
	}, nil
}

func (e *webmOpusEncoder) Encode(frame []int16) error {
	if e.closed {
		return errors.New("encoder closed")
	}

	n, err := e.enc.Encode(frame, e.packet)
	if err != nil {
		return fmt.Errorf("failed to encode opus frame: %w", err)
	}

	// every opus packet decodes on its own, so each block is a keyframe
	if _, err := e.track.Write(true, e.timestampMs, e.packet[:n]); err != nil {
		return fmt.Errorf("failed to write webm block: %w", err)
	}

	e.timestampMs += FrameDuration.Milliseconds()

	return nil
}

func (e *webmOpusEncoder) Close() error {
	if e.closed {
		return nil
	}

	e.closed = true

	if err := e.track.Close(); err != nil {
		return fmt.Errorf("failed to finalize webm: %w", err)
	}

	// the muxer writes from its own goroutine and closes out once drained
	select {
	case <-e.out.done:
		return nil
	case <-time.After(finalizeTimeout):
		return errors.New("timed out waiting for webm muxer to finish")
	}
}

// notifyCloser reports when the muxer has closed its output.
type notifyCloser struct {
	io.WriteCloser

	once sync.Once
	done chan struct{}
}

func (n *notifyCloser) Close() error {
	err := n.WriteCloser.Close()
	n.once.Do(func() { close(n.done) })

	return err
}

// opusHead builds the identification header stored as the track's
// CodecPrivate (RFC 7845 section 5.1).
func opusHead(channels uint8, inputRate uint32) []byte {
	head := make([]byte, 0, 19)
	head = append(head, "OpusHead"...)
	head = append(head, 1, channels)
	head = binary.LittleEndian.AppendUint16(head, opusPreSkip)
	head = binary.LittleEndian.AppendUint32(head, inputRate)
	// zero output gain, mapping family 0
	head = binary.LittleEndian.AppendUint16(head, 0)
	head = append(head, 0)

	return head
}
