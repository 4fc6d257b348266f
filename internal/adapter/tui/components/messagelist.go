package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"scoutchat/internal/adapter/tui/theme"
)

// MessageRole identifies the sender of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error" // assistant turn that failed
)

// ChatMessage is a single bubble in the chat view.
type ChatMessage struct {
	Role      MessageRole
	Content   string
	Hint      string // extra text shown under an error bubble
	Web       bool   // answer was built from web results
	Rendered  string // cached glamour output; empty means not yet rendered
	Timestamp time.Time
}

// MessageListModel manages an ordered list of chat messages.
type MessageListModel struct {
	Messages   []ChatMessage
	width      int
	mdRenderer *glamour.TermRenderer
}

func NewMessageList() MessageListModel {
	return MessageListModel{}
}

// SetWidth updates the rendering width and clears cached renders.
func (m *MessageListModel) SetWidth(w int) {
	if w == m.width {
		return
	}
	m.width = w
	m.mdRenderer = nil
	for i := range m.Messages {
		m.Messages[i].Rendered = ""
	}
}

// Add appends a message.
func (m *MessageListModel) Add(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.Messages = append(m.Messages, msg)
}

func (m *MessageListModel) Clear() {
	m.Messages = nil
}

// View renders all messages as a single string.
func (m *MessageListModel) View() string {
	if len(m.Messages) == 0 {
		return theme.TextMuted.Render("  No messages yet. Ask something, or press Ctrl+W to search the web first.")
	}

	width := ContentWidth(m.width)

	var sb strings.Builder
	for i := range m.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(&m.Messages[i], width))
	}
	return sb.String()
}

func (m *MessageListModel) renderMessage(msg *ChatMessage, width int) string {
	header := roleLabel(msg) + " " + theme.Timestamp.Render(RelativeTime(msg.Timestamp))

	switch msg.Role {
	case RoleAssistant:
		if msg.Rendered == "" {
			msg.Rendered = m.renderMarkdown(msg.Content, width)
		}
		return header + "\n" + strings.TrimRight(msg.Rendered, "\n")
	case RoleError:
		body := wrapText(msg.Content, width-6)
		if msg.Hint != "" {
			body += "\n\n" + theme.TextMuted.Render(msg.Hint)
		}
		return header + "\n" + theme.ErrorBubble.Width(width-2).Render(body)
	}

	// User and system messages sit inline with their label.
	headerWidth := lipgloss.Width(header)
	inlineW := width - headerWidth - 2
	if inlineW < 20 {
		return header + "\n  " + wrapText(msg.Content, width-2)
	}
	body := wrapText(msg.Content, inlineW)
	return header + "  " + body
}

func roleLabel(msg *ChatMessage) string {
	switch msg.Role {
	case RoleUser:
		return theme.UserLabel.Render(theme.SymbolUser)
	case RoleAssistant:
		if msg.Web {
			return theme.BotLabel.Render(theme.SymbolBot + " " + theme.SymbolGlobe)
		}
		return theme.BotLabel.Render(theme.SymbolBot)
	case RoleSystem:
		return theme.SystemLabel.Render("System")
	case RoleError:
		return theme.ErrorLabel.Render(theme.SymbolError + " " + theme.SymbolBot)
	default:
		return theme.TextMuted.Render(string(msg.Role))
	}
}

func (m *MessageListModel) renderMarkdown(content string, width int) string {
	if m.mdRenderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "  " + content
		}
		m.mdRenderer = r
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return "  " + content
	}
	return rendered
}

// RelativeTime returns a human-readable relative time string.
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

// wrapText wraps text to width with a 2-space indent on continuation lines.
// Indexing is by rune so CJK text is never split mid-character.
func wrapText(s string, width int) string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		out = append(out, wrapLine(para, width))
	}
	return strings.Join(out, "\n  ")
}

func wrapLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	var lines []string
	for len(runes) > width {
		idx := -1
		for i := width - 1; i > 0; i-- {
			if runes[i] == ' ' {
				idx = i
				break
			}
		}
		if idx <= 0 {
			idx = width
		}
		lines = append(lines, string(runes[:idx]))
		runes = runes[idx:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return strings.Join(lines, "\n  ")
}

// ContentWidth calculates the content width respecting MaxContentWidth.
func ContentWidth(termWidth int) int {
	return theme.Clamp(termWidth-4, 40, theme.MaxContentWidth)
}

// Divider renders a horizontal line at the given width.
func Divider(width int) string {
	return lipgloss.NewStyle().
		Foreground(theme.ColorBorder).
		Render(strings.Repeat("─", width))
}
