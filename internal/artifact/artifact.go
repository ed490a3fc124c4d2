// Package artifact holds encoded audio produced by one capture session.
package artifact

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

const (
	// MIMETypeWebMOpus is what the default encoder produces.
	MIMETypeWebMOpus = "audio/webm;codecs=opus"
	// MIMETypeMPEG is produced by the mp3 encoder.
	MIMETypeMPEG = "audio/mpeg"
)

// ErrBufferClosed is returned when writing to a finalized ChunkBuffer.
var ErrBufferClosed = errors.New("chunk buffer closed")

// Artifact is one encoded recording.
type Artifact struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Len returns the size of the encoded audio in bytes.
func (a Artifact) Len() int {
	return len(a.Data)
}

// Empty reports whether the artifact carries no audio.
func (a Artifact) Empty() bool {
	return len(a.Data) == 0
}

// Reader returns a fresh reader over the encoded bytes.
func (a Artifact) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// ChunkBuffer collects the chunks an encoder emits, in order, until Close.
// It is an io.WriteCloser so container writers can target it directly.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
	closed bool
}

// NewChunkBuffer returns an empty buffer.
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Write stores a copy of p as the next chunk.
func (b *ChunkBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBufferClosed
	}

	if len(p) == 0 {
		return 0, nil
	}

	chunk := make([]byte, len(p))
	copy(chunk, p)
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)

	return len(p), nil
}

// Close marks the buffer as finalized. Closing twice is a no-op.
func (b *ChunkBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

// Closed reports whether Close has been called.
func (b *ChunkBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// Chunks returns the number of chunks written so far.
func (b *ChunkBuffer) Chunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.chunks)
}

// Size returns the sum of all chunk lengths.
// Safe to call while an encoder is still writing.
func (b *ChunkBuffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int64(b.size)
}

// Artifact concatenates every chunk into one artifact.
func (b *ChunkBuffer) Artifact(mimeType, filename string) Artifact {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		data = append(data, c...)
	}

	return Artifact{
		Data:     data,
		MIMEType: mimeType,
		Filename: filename,
	}
}
