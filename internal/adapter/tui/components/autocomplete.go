package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scoutchat/internal/adapter/tui/theme"
)

// CommandDef describes a slash command offered by the input popup.
type CommandDef struct {
	Name        string   // "/web"
	Args        string   // "[on|off]", shown after the name
	Description string
	Aliases     []string // "/exit" for "/quit"
}

// Usage is the command name followed by its argument hint.
func (c CommandDef) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

func (c CommandDef) matches(prefix string) bool {
	if strings.HasPrefix(c.Name, prefix) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// HelpLines renders one aligned "usage - description" line per command.
func HelpLines(commands []CommandDef) string {
	w := usageWidth(commands)
	var b strings.Builder
	for i, c := range commands {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  %-*s - %s", w, c.Usage(), c.Description)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, " (also %s)", strings.Join(c.Aliases, ", "))
		}
	}
	return b.String()
}

func usageWidth(commands []CommandDef) int {
	w := 0
	for _, c := range commands {
		w = max(w, len(c.Usage()))
	}
	return w
}

// AutocompleteModel is the popup listing slash commands that match what
// has been typed so far.
type AutocompleteModel struct {
	Commands []CommandDef
	Filtered []CommandDef
	Selected int
	Visible  bool
	prefix   string
	maxShow  int
	width    int
}

func NewAutocomplete(commands []CommandDef) AutocompleteModel {
	return AutocompleteModel{Commands: commands, maxShow: 5}
}

func (m *AutocompleteModel) SetWidth(w int) {
	m.width = w
}

// SetPrefix refilters the list. The popup only shows while the input is a
// bare command word.
func (m *AutocompleteModel) SetPrefix(prefix string) {
	m.prefix = strings.ToLower(prefix)
	m.Filtered = m.Filtered[:0]
	if strings.HasPrefix(m.prefix, "/") && !strings.ContainsAny(m.prefix, " \n") {
		for _, c := range m.Commands {
			if c.matches(m.prefix) {
				m.Filtered = append(m.Filtered, c)
			}
		}
	}
	m.Visible = len(m.Filtered) > 0
	if m.Selected >= len(m.Filtered) {
		m.Selected = 0
	}
}

func (m *AutocompleteModel) Hide() {
	m.Visible = false
	m.Filtered = nil
	m.prefix = ""
	m.Selected = 0
}

func (m *AutocompleteModel) SelectNext() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected + 1) % n
	}
}

func (m *AutocompleteModel) SelectPrev() {
	if n := len(m.Filtered); n > 0 {
		m.Selected = (m.Selected - 1 + n) % n
	}
}

// Accept returns the selected command name and hides the popup.
func (m *AutocompleteModel) Accept() string {
	if len(m.Filtered) == 0 {
		return ""
	}
	name := m.Filtered[m.Selected].Name
	m.Hide()
	return name
}

// Height is the number of terminal lines the popup takes, borders included.
func (m AutocompleteModel) Height() int {
	if !m.Visible {
		return 0
	}
	return min(len(m.Filtered), m.maxShow) + 2
}

func (m AutocompleteModel) View() string {
	if !m.Visible || len(m.Filtered) == 0 {
		return ""
	}

	show := m.Filtered[:min(len(m.Filtered), m.maxShow)]
	usageW := usageWidth(show)
	maxDesc := max(m.width-4, 30) - usageW - 4

	lines := make([]string, 0, len(show))
	for i, c := range show {
		desc := c.Description
		if maxDesc > 1 && len(desc) > maxDesc {
			desc = desc[:maxDesc-1] + theme.SymbolEllipsis
		}
		line := fmt.Sprintf("%-*s ", usageW, c.Usage()) + theme.TextMuted.Render(desc)
		if i == m.Selected {
			line = theme.TextInfo.Render(theme.SymbolArrowR+" ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
