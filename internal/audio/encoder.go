package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/alkime/voxrelay/internal/artifact"
)

// Codec names an output container/codec pair.
type Codec string

const (
	CodecWebMOpus Codec = "webm"
	CodecMP3      Codec = "mp3"
)

// ErrUnknownCodec is returned for a codec name that is not supported.
var ErrUnknownCodec = errors.New("unknown codec")

// ParseCodec accepts the names used on the command line.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", CodecWebMOpus:
		return CodecWebMOpus, nil
	case CodecMP3:
		return CodecMP3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// MIMEType is the content type of the encoded artifact.
func (c Codec) MIMEType() string {
	if c == CodecMP3 {
		return artifact.MIMETypeMPEG
	}

	return artifact.MIMETypeWebMOpus
}

// Filename is the name the artifact is uploaded under.
func (c Codec) Filename() string {
	if c == CodecMP3 {
		return "recording.mp3"
	}

	return "recording.webm"
}

// Encoder turns mixed frames into encoded bytes written to its output.
type Encoder interface {
	// Encode consumes one FrameSamples-long mono frame at GraphSampleRate.
	Encode(frame []int16) error
	// Close flushes pending audio, finalizes the container and closes the
	// output.
	Close() error
}

// NewEncoder creates an encoder for codec writing into w.
func NewEncoder(codec Codec, w io.WriteCloser) (Encoder, error) {
	if w == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	switch codec {
	case CodecWebMOpus, "":
		return newWebMOpusEncoder(w)
	case CodecMP3:
		return newMP3Encoder(w, DefaultMP3BufferThreshold)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
}
