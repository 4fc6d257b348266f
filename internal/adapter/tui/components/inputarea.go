package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scoutchat/internal/adapter/tui/theme"
)

// Placeholders for the two chat modes.
const (
	PlaceholderChat = "Ask anything..."
	PlaceholderWeb  = "Ask anything, answers use live web results..."
)

// InputSubmitMsg is sent when the user presses Enter on non-blank input.
// Value is the text exactly as typed.
type InputSubmitMsg struct {
	Value string
}

// InputAreaModel wraps a textarea with slash-command autocomplete and submit handling.
type InputAreaModel struct {
	Textarea     textarea.Model
	Autocomplete AutocompleteModel
	Enabled      bool
	width        int
}

// NewInputArea creates an input area that autocompletes the given commands.
func NewInputArea(commands []CommandDef) InputAreaModel {
	ta := textarea.New()
	ta.Placeholder = PlaceholderChat
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.Focus()

	return InputAreaModel{
		Textarea:     ta,
		Autocomplete: NewAutocomplete(commands),
		Enabled:      true,
	}
}

// SetWidth updates the textarea width.
func (m *InputAreaModel) SetWidth(w int) {
	m.width = w
	m.Textarea.SetWidth(w - 2)
	m.Autocomplete.SetWidth(w)
}

// SetEnabled enables or disables input (e.g. while a turn is in flight).
func (m *InputAreaModel) SetEnabled(enabled bool) {
	m.Enabled = enabled
	if enabled {
		m.Textarea.Focus()
	} else {
		m.Textarea.Blur()
	}
}

// SetWebMode switches the placeholder to match the chat mode.
func (m *InputAreaModel) SetWebMode(on bool) {
	if on {
		m.Textarea.Placeholder = PlaceholderWeb
	} else {
		m.Textarea.Placeholder = PlaceholderChat
	}
}

// Placeholder returns the current placeholder text.
func (m InputAreaModel) Placeholder() string {
	return m.Textarea.Placeholder
}

func (m *InputAreaModel) Reset() {
	m.Textarea.Reset()
}

// Value returns the current input text.
func (m InputAreaModel) Value() string {
	return m.Textarea.Value()
}

// ParseSlashCommand extracts command and args from slash command input.
func ParseSlashCommand(input string) (cmd string, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	parts := strings.Fields(input)
	return strings.ToLower(parts[0]), parts[1:], true
}

// Update handles key events. Enter submits; Alt+Enter inserts a newline.
// While the autocomplete popup is visible, Tab and the arrow keys navigate it.
func (m InputAreaModel) Update(msg tea.Msg) (InputAreaModel, tea.Cmd) {
	if !m.Enabled {
		return m, nil
	}

	if _, ok := msg.(tea.MouseMsg); ok {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.Autocomplete.Visible {
			switch keyMsg.Type {
			case tea.KeyTab, tea.KeyDown:
				m.Autocomplete.SelectNext()
				return m, nil
			case tea.KeyShiftTab, tea.KeyUp:
				m.Autocomplete.SelectPrev()
				return m, nil
			case tea.KeyEnter:
				if accepted := m.Autocomplete.Accept(); accepted != "" {
					m.Textarea.SetValue(accepted)
					m.Textarea.CursorEnd()
				}
				return m, nil
			case tea.KeyEsc:
				m.Autocomplete.Hide()
				return m, nil
			}
		}

		if keyMsg.Type == tea.KeyEnter && !keyMsg.Alt {
			value := m.Textarea.Value()
			if strings.TrimSpace(value) == "" {
				return m, nil
			}
			m.Textarea.Reset()
			m.Autocomplete.Hide()
			return m, func() tea.Msg {
				return InputSubmitMsg{Value: value}
			}
		}
	}

	var cmd tea.Cmd
	m.Textarea, cmd = m.Textarea.Update(msg)

	m.Autocomplete.SetPrefix(m.Textarea.Value())
	return m, cmd
}

// View renders the input area with the autocomplete popup above it.
func (m InputAreaModel) View() string {
	if popup := m.Autocomplete.View(); popup != "" {
		return popup + "\n" + m.Textarea.View()
	}
	return m.Textarea.View()
}
