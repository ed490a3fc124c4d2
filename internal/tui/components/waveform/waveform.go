// Package waveform renders recent audio amplitude as block bars.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/voxrelay/internal/tui/style"
	"github.com/alkime/voxrelay/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Index 0 is empty, 1-8 are increasing fill levels.
const blockChars = " ▁▂▃▄▅▆▇█"

const refreshInterval = 50 * time.Millisecond

// TickMsg triggers a waveform redraw.
type TickMsg struct{}

// Model shows the samples read from a Levels control, oldest on the left.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a waveform width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// SetWidth resizes the waveform.
func (m *Model) SetWidth(width int) {
	m.width = max(width, 1)
}

// Init returns the first tick.
func (m Model) Init() tea.Cmd {
	return Tick()
}

// Update keeps ticking while the parent forwards TickMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, Tick()
	}

	return m, nil
}

// View renders the waveform.
func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.renderBaseline()
	}

	return m.render(columnLevels(samples, m.width, m.height*8))
}

// Tick schedules the next redraw at ~20 FPS.
func Tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) render(levels []int) string {
	runes := []rune(blockChars)
	rows := make([]string, m.height)

	for row := range m.height {
		// rows are drawn top down; each covers 8 levels
		base := (m.height - 1 - row) * 8

		var sb strings.Builder
		for _, level := range levels {
			fill := min(max(level-base, 0), 8)
			sb.WriteRune(runes[fill])
		}

		rows[row] = style.Progress.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderBaseline() string {
	rows := make([]string, m.height)
	for row := range m.height {
		ch := " "
		if row == m.height-1 {
			ch = "▁"
		}

		rows[row] = style.Muted.Render(strings.Repeat(ch, m.width))
	}

	return strings.Join(rows, "\n")
}

// columnLevels buckets samples into width columns and maps each bucket's
// peak onto 0..maxLevel.
func columnLevels(samples []int16, width, maxLevel int) []int {
	levels := make([]int, width)
	bucket := max(1, len(samples)/width)

	for col := range width {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		end := min(start+bucket, len(samples))
		levels[col] = scale(peak(samples[start:end]), maxLevel)
	}

	return levels
}

func peak(samples []int16) int {
	var p int
	for _, s := range samples {
		// int conversion first: -32768 has no int16 negation
		v := int(s)
		if v < 0 {
			v = -v
		}

		p = max(p, v)
	}

	return min(p, math.MaxInt16)
}

// scale uses a square-root curve so quiet speech is still visible.
func scale(amp, maxLevel int) int {
	if amp <= 0 {
		return 0
	}

	normalized := float64(amp) / math.MaxInt16

	return min(int(math.Sqrt(normalized)*float64(maxLevel)), maxLevel)
}
