package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pathModel collects a file name for "File to patch: ". Enter submits the
// typed value; Esc, Ctrl+C and Ctrl+D give up, which the applier treats as
// no answer.
type pathModel struct {
	prompt string
	input  textinput.Model
	label  lipgloss.Style
	answer string
	done   bool
}

func newPathModel(promptText string, r *lipgloss.Renderer) pathModel {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	ti := textinput.New()
	ti.Prompt = ""
	ti.Focus()
	return pathModel{
		prompt: promptText,
		input:  ti,
		label:  r.NewStyle().Bold(true),
	}
}

func (m pathModel) Init() tea.Cmd { return textinput.Blink }

func (m pathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.answer = strings.TrimSpace(m.input.Value())
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC, tea.KeyCtrlD:
			m.answer = ""
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pathModel) View() string {
	if m.done {
		return ""
	}
	return m.label.Render(m.prompt) + m.input.View()
}

// confirmModel asks a yes/no question. y and n answer immediately; Enter
// takes the default the prompt's [y]/[n] suffix advertises.
type confirmModel struct {
	prompt string
	def    bool
	label  lipgloss.Style
	answer bool
	done   bool
}

func newConfirmModel(promptText string, def bool, r *lipgloss.Renderer) confirmModel {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return confirmModel{
		prompt: promptText,
		def:    def,
		answer: def,
		label:  r.NewStyle().Bold(true),
	}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEnter, tea.KeyEsc, tea.KeyCtrlC, tea.KeyCtrlD:
		m.done = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch strings.ToLower(string(key.Runes)) {
		case "y":
			m.answer = true
			m.done = true
			return m, tea.Quit
		case "n":
			m.answer = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return m.label.Render(m.prompt)
}
