package artifact_test

import (
	"io"
	"testing"

	"github.com/alkime/voxrelay/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkBuffer_ArtifactLengthIsSumOfChunks(t *testing.T) {
	t.Parallel()

	buf := artifact.NewChunkBuffer()

	chunks := [][]byte{
		[]byte("\x1a\x45\xdf\xa3"),
		make([]byte, 317),
		[]byte("opus"),
		make([]byte, 1024),
	}

	total := 0
	for _, c := range chunks {
		n, err := buf.Write(c)
		require.NoError(t, err)
		assert.Equal(t, len(c), n)
		total += len(c)
	}

	require.NoError(t, buf.Close())

	a := buf.Artifact(artifact.MIMETypeWebMOpus, "recording.webm")
	assert.Equal(t, total, a.Len())
	assert.Equal(t, int64(total), buf.Size())
	assert.Equal(t, len(chunks), buf.Chunks())
	assert.Equal(t, "audio/webm;codecs=opus", a.MIMEType)
	assert.Equal(t, "recording.webm", a.Filename)
	assert.Equal(t, chunks[0], a.Data[:4])
}

func TestChunkBuffer_CopiesInput(t *testing.T) {
	t.Parallel()

	buf := artifact.NewChunkBuffer()
	p := []byte("abc")
	_, err := buf.Write(p)
	require.NoError(t, err)

	p[0] = 'z'

	a := buf.Artifact(artifact.MIMETypeMPEG, "recording.mp3")
	assert.Equal(t, []byte("abc"), a.Data)
}

func TestChunkBuffer_WriteAfterClose(t *testing.T) {
	t.Parallel()

	buf := artifact.NewChunkBuffer()
	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())
	assert.True(t, buf.Closed())

	_, err := buf.Write([]byte("late"))
	require.ErrorIs(t, err, artifact.ErrBufferClosed)
}

func TestChunkBuffer_EmptyWritesIgnored(t *testing.T) {
	t.Parallel()

	buf := artifact.NewChunkBuffer()
	n, err := buf.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, buf.Chunks())
	assert.True(t, buf.Artifact(artifact.MIMETypeWebMOpus, "recording.webm").Empty())
}

func TestArtifact_Reader(t *testing.T) {
	t.Parallel()

	a := artifact.Artifact{Data: []byte("hello")}

	first, err := io.ReadAll(a.Reader())
	require.NoError(t, err)
	second, err := io.ReadAll(a.Reader())
	require.NoError(t, err)

	assert.Equal(t, "hello", string(first))
	assert.Equal(t, first, second)
}
