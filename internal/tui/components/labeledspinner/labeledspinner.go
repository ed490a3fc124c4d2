// Package labeledspinner shows a spinner next to a title and a status line.
package labeledspinner

import (
	"strings"

	"github.com/alkime/voxrelay/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model displays a spinner with a title and subtitle.
type Model struct {
	Spinner  spinner.Model
	Title    string
	Subtitle string
}

// New creates a new labeled spinner.
func New(s spinner.Spinner, title, subtitle string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner:  sp,
		Title:    title,
		Subtitle: subtitle,
	}
}

// Init returns the first spinner tick.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update handles spinner tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// View renders the spinner, title and subtitle on one line.
func (ls Model) View() string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Title))

	if ls.Subtitle != "" {
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(ls.Subtitle))
	}

	return sb.String()
}
