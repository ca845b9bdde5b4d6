package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tunelark/crossfade/internal/engine"
)

// Dispatcher executes one command line and returns its result code together
// with the transcript text to display.
type Dispatcher func(line string) (engine.Outcome, string)

// MsgKind enumerates all message types in the shell.
type MsgKind int

const (
	// MsgDispatched reports a finished command.
	MsgDispatched MsgKind = iota
)

// Msg represents all possible messages in the shell (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

// dispatchResult is the payload of [MsgDispatched].
type dispatchResult struct {
	line    string
	outcome engine.Outcome
	output  string
}

// dispatchedMsg is the constructor for [MsgDispatched]
func dispatchedMsg(line string, outcome engine.Outcome, output string) Msg {
	return Msg{kind: MsgDispatched, data: dispatchResult{line: line, outcome: outcome, output: output}}
}

// Model is the interactive shell's bubbletea model.
type Model struct {
	input      textinput.Model
	dispatch   Dispatcher
	transcript []string
	busy       bool
	quitting   bool
	last       engine.Outcome
}

// NewModel creates the shell model around a dispatcher.
func NewModel(dispatch Dispatcher) Model {
	ti := textinput.New()
	ti.Prompt = styles.prompt.Render(">>> ")
	ti.Placeholder = "type 'help' for commands"
	ti.Focus()

	return Model{
		input:    ti,
		dispatch: dispatch,
		transcript: []string{
			"Welcome to the playlist synchronizer. Type 'help' to see all commands or 'exit' to end the program.",
		},
	}
}

// LastOutcome returns the result code of the most recent command.
func (m Model) LastOutcome() engine.Outcome { return m.last }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		}

	case Msg:
		if msg.kind == MsgDispatched {
			res := msg.data.(dispatchResult)
			m.busy = false
			m.last = res.outcome
			if res.output != "" {
				m.transcript = append(m.transcript, strings.TrimRight(res.output, "\n"))
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit consumes the current input line. Empty lines and exit are handled
// here; everything else goes to the dispatcher off the update loop.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	if line == "" {
		m.last = engine.NoInput
		return m, nil
	}

	m.transcript = append(m.transcript, ">>> "+line)

	if strings.EqualFold(line, "exit") {
		m.last = engine.Success
		m.quitting = true
		return m, tea.Quit
	}

	m.busy = true
	dispatch := m.dispatch
	return m, func() tea.Msg {
		outcome, output := dispatch(line)
		return dispatchedMsg(line, outcome, output)
	}
}

func (m Model) View() string {
	var b strings.Builder
	for _, line := range m.transcript {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.quitting {
		return b.String()
	}
	if m.busy {
		b.WriteString(styles.warn.Render("working..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render("enter to run, ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}
