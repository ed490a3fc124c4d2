package audio

import (
	"encoding/binary"
	"slices"
)

// Resampler converts a mono int16 stream between sample rates using linear
// interpolation. It keeps the last input sample between calls so a stream
// fed in arbitrary chunks produces the same output as one fed all at once.
type Resampler struct {
	step   float64 // input samples advanced per output sample
	pos    float64 // next output position, 0 == tail
	tail   int16
	primed bool
	same   bool
}

// NewResampler creates a resampler from one rate to another.
func NewResampler(from, to int) *Resampler {
	return &Resampler{ //nolint:exhaustruct // stream state starts at zero
		step: float64(from) / float64(to),
		same: from == to,
	}
}

// Process resamples the next chunk of input.
func (r *Resampler) Process(in []int16) []int16 {
	if len(in) == 0 {
		return nil
	}

	if r.same {
		return slices.Clone(in)
	}

	if !r.primed {
		r.tail = in[0]
		r.primed = true
		in = in[1:]
	}

	// Index 0 is the tail carried from the previous chunk, index k is in[k-1].
	at := func(k int) float64 {
		if k == 0 {
			return float64(r.tail)
		}

		return float64(in[k-1])
	}

	n := float64(len(in))
	out := make([]int16, 0, int(n/r.step)+1)

	for r.pos < n {
		i := int(r.pos)
		frac := r.pos - float64(i)
		a := at(i)
		b := at(i + 1)
		out = append(out, int16(a+(b-a)*frac))
		r.pos += r.step
	}

	r.pos -= n
	if len(in) > 0 {
		r.tail = in[len(in)-1]
	}

	return out
}

// BytesToInt16 converts S16LE (signed 16-bit little-endian) bytes to int16 samples.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)

	for i := range numSamples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:])) //nolint:gosec // reinterpretation is intended
	}

	return samples
}
