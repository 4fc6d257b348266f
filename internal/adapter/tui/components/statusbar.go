package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scoutchat/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders a bottom status bar: key hints on the left, web
// mode, model name and phase text on the right.
type StatusBarModel struct {
	Hints     []KeyHint
	ModelName string
	Web       bool
	Extra     string // phase text, e.g. "Thinking…"
	width     int
}

func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// WebLabel is the plain text of the web indicator.
func (m StatusBarModel) WebLabel() string {
	if m.Web {
		return "WEB ON"
	}
	return "WEB OFF"
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	web := theme.WebOff.Render(m.WebLabel())
	if m.Web {
		web = theme.WebOn.Render(theme.SymbolGlobe + " " + m.WebLabel())
	}
	right := web
	if m.ModelName != "" {
		right += "  " + theme.TextMuted.Render(m.ModelName)
	}
	if m.Extra != "" {
		right += "  " + theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
