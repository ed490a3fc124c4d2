package audio

import (
	"sync"

	"github.com/alkime/voxrelay/pkg/uictl"
)

// DefaultMeterWindow keeps about two seconds of mixed audio.
const DefaultMeterWindow = 2 * GraphSampleRate

var _ uictl.Levels[int16] = (*Meter)(nil)

// Meter keeps the most recent mixed samples for display. The capture loop
// writes and the UI reads concurrently.
type Meter struct {
	mu      sync.RWMutex
	samples []int16
	head    int // next write position
	count   int // valid samples, up to capacity
	view    int // samples returned by Read
}

// NewMeter creates a meter holding capacity samples whose Read returns the
// latest view of them.
func NewMeter(capacity, view int) *Meter {
	capacity = max(capacity, 1)

	return &Meter{ //nolint:exhaustruct // ring cursors start at zero
		samples: make([]int16, capacity),
		view:    min(max(view, 1), capacity),
	}
}

// Write appends samples, overwriting the oldest when full.
func (m *Meter) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	capacity := len(m.samples)
	if len(samples) >= capacity {
		copy(m.samples, samples[len(samples)-capacity:])
		m.head = 0
		m.count = capacity

		return
	}

	for _, s := range samples {
		m.samples[m.head] = s
		m.head = (m.head + 1) % capacity
	}

	m.count = min(m.count+len(samples), capacity)
}

// Read returns up to the configured view of the newest samples, oldest first.
func (m *Meter) Read() []int16 {
	return m.Latest(m.view)
}

// Latest returns up to n of the newest samples, oldest first.
func (m *Meter) Latest(n int) []int16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.count == 0 || n <= 0 {
		return nil
	}

	n = min(n, m.count)
	capacity := len(m.samples)
	start := (m.head - n + capacity) % capacity

	out := make([]int16, n)
	for i := range n {
		out[i] = m.samples[(start+i)%capacity]
	}

	return out
}

// Reset forgets every sample, e.g. when a new recording starts.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.head = 0
	m.count = 0
}
