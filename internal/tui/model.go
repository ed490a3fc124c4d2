// Package tui is the terminal front end of a capture session: two credential
// fields, one action button, a status line and the transcript.
package tui

import (
	"context"
	"strings"

	"github.com/alkime/voxrelay/internal/session"
	"github.com/alkime/voxrelay/internal/tui/components/labeledspinner"
	"github.com/alkime/voxrelay/internal/tui/components/waveform"
	"github.com/alkime/voxrelay/internal/tui/style"
	"github.com/alkime/voxrelay/internal/validate"
	"github.com/alkime/voxrelay/pkg/uictl"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultWidth     = 60
	transcriptHeight = 8
	waveformHeight   = 3
)

// Controller is the part of session.Controller the UI drives.
type Controller interface {
	SetCredentials(apiKey, email string)
	CanStart() bool
	CanProcess() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Process(ctx context.Context) error
	Reset()
	Close()
	Snapshot() session.Snapshot
}

// Options pre-fill the form and attach the level meter.
type Options struct {
	APIKey string
	Email  string
	Levels uictl.Levels[int16]
}

type field int

const (
	fieldAPIKey field = iota
	fieldEmail
	fieldAction
	fieldCount
)

// actionDoneMsg reports that a Start, Stop or Process call returned.
// The error is already reflected in the controller's status line.
type actionDoneMsg struct {
	err error
}

// Model is the bubbletea model of the recorder screen.
type Model struct {
	ctx  context.Context
	ctrl Controller
	keys KeyMap
	help help.Model

	apiKey textinput.Model
	email  textinput.Model
	focus  field

	waveform   waveform.Model
	busy       labeledspinner.Model
	transcript viewport.Model

	// pending is true while a controller call runs in a tea.Cmd.
	pending bool
	// shown is the transcript currently loaded into the viewport.
	shown string
}

// New creates the recorder screen. ctx bounds every controller call.
func New(ctx context.Context, ctrl Controller, opts Options) Model {
	apiKey := textinput.New()
	apiKey.Placeholder = "sk-..."
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'
	apiKey.SetValue(opts.APIKey)

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.SetValue(opts.Email)

	focus := fieldAPIKey
	if opts.APIKey != "" {
		focus = fieldEmail
	}

	vp := viewport.New(defaultWidth, transcriptHeight)
	vp.Style = style.Viewport

	m := Model{
		ctx:        ctx,
		ctrl:       ctrl,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		apiKey:     apiKey,
		email:      email,
		focus:      focus,
		waveform:   waveform.New(opts.Levels, defaultWidth, waveformHeight),
		busy:       labeledspinner.New(spinner.Dot, "", ""),
		transcript: vp,
	}

	m.applyFocus()
	ctrl.SetCredentials(apiKey.Value(), email.Value())

	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input and controller results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := max(min(msg.Width-4, 100), 20)
		m.transcript.Width = width
		m.waveform.SetWidth(width)
		m.help.Width = msg.Width

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case actionDoneMsg:
		m.pending = false
		m.syncTranscript()

		if m.ctrl.Snapshot().State == session.StateRecording {
			return m, waveform.Tick()
		}

		return m, nil

	case waveform.TickMsg:
		if m.ctrl.Snapshot().State != session.StateRecording {
			return m, nil
		}

		var cmd tea.Cmd
		m.waveform, cmd = m.waveform.Update(msg)

		return m, cmd

	case spinner.TickMsg:
		m.syncTranscript()

		if !m.working() {
			return m, nil
		}

		var cmd tea.Cmd
		m.busy, cmd = m.busy.Update(msg)

		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Close()

		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		m.focus = (m.focus + 1) % fieldCount
		m.applyFocus()

		return m, nil

	case key.Matches(msg, m.keys.Prev):
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		m.applyFocus()

		return m, nil

	case key.Matches(msg, m.keys.Action),
		m.focus == fieldAction && key.Matches(msg, m.keys.Press):
		return m.act()

	case key.Matches(msg, m.keys.Discard):
		m.ctrl.Reset()

		return m, nil
	}

	return m.updateInputs(msg)
}

// act triggers whatever the action button currently stands for.
func (m Model) act() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}

	var call func(context.Context) error

	switch m.ctrl.Snapshot().State {
	case session.StateIdle:
		if !m.ctrl.CanStart() {
			return m, nil
		}

		call = m.ctrl.Start
	case session.StateRecording:
		call = m.ctrl.Stop
	case session.StateRecorded:
		if !m.ctrl.CanProcess() {
			return m, nil
		}

		call = m.ctrl.Process
	default:
		return m, nil
	}

	m.pending = true
	ctx := m.ctx

	return m, tea.Batch(
		func() tea.Msg { return actionDoneMsg{err: call(ctx)} },
		m.busy.Init(),
	)
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	// fields are editable while nothing is running
	if state := m.ctrl.Snapshot().State; state != session.StateIdle && state != session.StateRecorded {
		return m, nil
	}

	var keyCmd, emailCmd tea.Cmd
	m.apiKey, keyCmd = m.apiKey.Update(msg)
	m.email, emailCmd = m.email.Update(msg)
	m.ctrl.SetCredentials(m.apiKey.Value(), m.email.Value())

	return m, tea.Batch(keyCmd, emailCmd)
}

func (m *Model) applyFocus() {
	m.apiKey.Blur()
	m.email.Blur()

	switch m.focus {
	case fieldAPIKey:
		m.apiKey.Focus()
	case fieldEmail:
		m.email.Focus()
	case fieldAction, fieldCount:
	}
}

func (m *Model) syncTranscript() {
	text := m.ctrl.Snapshot().Transcript
	if text == m.shown {
		return
	}

	m.shown = text
	m.transcript.SetContent(text)
	m.transcript.GotoTop()
}

func (m Model) working() bool {
	return m.pending || m.ctrl.Snapshot().Processing()
}

// View renders the screen from the controller's current snapshot.
func (m Model) View() string {
	snap := m.ctrl.Snapshot()

	var sb strings.Builder

	sb.WriteString(style.Title.Render("voxrelay"))
	sb.WriteString("\n\n")

	sb.WriteString(style.Label.Render("API key"))
	sb.WriteString(m.apiKey.View())
	sb.WriteString("\n")

	sb.WriteString(style.Label.Render("Email"))
	sb.WriteString(m.email.View())

	if validate.StatusOf(m.email.Value()).ShowError() {
		sb.WriteString(" ")
		sb.WriteString(style.Error.Render("✗ invalid email"))
	}

	sb.WriteString("\n\n")
	sb.WriteString(m.renderButton(snap))
	sb.WriteString("\n\n")

	if snap.State == session.StateRecording {
		sb.WriteString(style.Warning.Render("● REC"))
		sb.WriteString("\n")
		sb.WriteString(m.waveform.View())
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.renderStatus(snap))
	sb.WriteString("\n\n")

	sb.WriteString(style.Subtitle.Render("Transcript"))
	sb.WriteString("\n")
	sb.WriteString(m.transcript.View())
	sb.WriteString("\n")

	sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))

	return sb.String()
}

func (m Model) renderButton(snap session.Snapshot) string {
	label, enabled := actionLabel(snap.State, m.pending)
	if enabled {
		switch snap.State { //nolint:exhaustive // the other states need no credentials check
		case session.StateIdle:
			enabled = m.ctrl.CanStart()
		case session.StateRecorded:
			enabled = m.ctrl.CanProcess()
		}
	}

	text := "[ " + label + " ]"

	switch {
	case !enabled:
		return style.DisabledButton.Render(text)
	case m.focus == fieldAction:
		return style.FocusedButton.Render(text)
	default:
		return style.Button.Render(text)
	}
}

func (m Model) renderStatus(snap session.Snapshot) string {
	switch {
	case m.working():
		busy := m.busy
		busy.Title = "Working"
		busy.Subtitle = snap.Status

		return busy.View()
	case snap.Err != nil:
		return style.Error.Render(snap.Status)
	case snap.Status == session.StatusSucceeded:
		return style.Success.Render(snap.Status)
	default:
		return style.Subtitle.Render(snap.Status)
	}
}

// actionLabel names the button for a state. The second result is false
// while a call is outstanding.
func actionLabel(state session.State, pending bool) (string, bool) {
	switch {
	case state == session.StateProcessing:
		return "Processing...", false
	case state == session.StateRecorded && pending:
		return "Processing...", false
	case pending:
		return "Please wait", false
	case state == session.StateRecording:
		return "Done", true
	case state == session.StateRecorded:
		return "Process", true
	default:
		return "Start", true
	}
}
