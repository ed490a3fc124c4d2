package audio

import "math"

// Mixer combines the microphone and secondary streams into 20 ms mono frames
// at GraphSampleRate. The microphone drives the clock: a frame is emitted
// every time enough microphone audio has arrived, with whatever secondary
// audio is buffered summed into it.
type Mixer struct {
	mic *Resampler
	sec *Resampler

	micBuf []int16
	secBuf []int16

	frameSize  int
	maxBacklog int
	trimmed    int64
}

// NewMixer creates a mixer for the given input rates.
func NewMixer(micRate, secRate int) *Mixer {
	return &Mixer{ //nolint:exhaustruct // buffers grow on demand
		mic:        NewResampler(micRate, GraphSampleRate),
		sec:        NewResampler(secRate, GraphSampleRate),
		frameSize:  FrameSamples,
		maxBacklog: GraphSampleRate,
	}
}

// PushMic adds microphone samples and returns every frame they complete.
func (m *Mixer) PushMic(pcm []int16) [][]int16 {
	m.micBuf = append(m.micBuf, m.mic.Process(pcm)...)

	var frames [][]int16
	for len(m.micBuf) >= m.frameSize {
		frames = append(frames, m.nextFrame(m.frameSize))
	}

	return frames
}

// PushSecondary adds secondary samples. Anything beyond one second of
// backlog is dropped from the oldest end.
func (m *Mixer) PushSecondary(pcm []int16) {
	m.secBuf = append(m.secBuf, m.sec.Process(pcm)...)

	if over := len(m.secBuf) - m.maxBacklog; over > 0 {
		m.secBuf = append(m.secBuf[:0], m.secBuf[over:]...)
		m.trimmed += int64(over)
	}
}

// Flush returns the remaining microphone audio padded to a full frame, or
// nil when nothing is pending.
func (m *Mixer) Flush() []int16 {
	if len(m.micBuf) == 0 {
		return nil
	}

	pending := len(m.micBuf)
	m.micBuf = append(m.micBuf, make([]int16, m.frameSize-pending)...)

	return m.nextFrame(m.frameSize)
}

// Trimmed is the number of secondary samples dropped for exceeding the backlog.
func (m *Mixer) Trimmed() int64 {
	return m.trimmed
}

func (m *Mixer) nextFrame(n int) []int16 {
	frame := make([]int16, n)
	copy(frame, m.micBuf[:n])
	m.micBuf = append(m.micBuf[:0], m.micBuf[n:]...)

	take := min(n, len(m.secBuf))
	mixInto(frame, m.secBuf[:take])
	m.secBuf = append(m.secBuf[:0], m.secBuf[take:]...)

	return frame
}

// mixInto sums src into dst, saturating at the int16 bounds.
func mixInto(dst, src []int16) {
	for i, s := range src {
		if i >= len(dst) {
			return
		}

		sum := int32(dst[i]) + int32(s)
		switch {
		case sum > math.MaxInt16:
			sum = math.MaxInt16
		case sum < math.MinInt16:
			sum = math.MinInt16
		}

		dst[i] = int16(sum)
	}
}
