// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Names omit a "Style" suffix since they are read as style.Title etc.
var (
	// Title is used for the app header and the busy indicator.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Success is used for the final status line.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error is used for error status lines and field hints.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning is used for the recording indicator.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Viewport frames the transcript.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key is used for highlighting keyboard keys.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Progress colors the waveform.
	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label is used for form field labels.
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255")).
		Width(9)

	// Muted is used for de-emphasized text.
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Button is the enabled action button.
	Button = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// FocusedButton is the action button while it has focus.
	FocusedButton = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	// DisabledButton is the action button while its action is not allowed.
	DisabledButton = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
