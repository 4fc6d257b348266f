package components

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ChatViewModel wraps a viewport that follows new messages while the user
// is at the bottom and stays put once they scroll up.
type ChatViewModel struct {
	Viewport viewport.Model
	Messages MessageListModel
	ready    bool
	atBottom bool
}

// NewChatView creates a chat view. The viewport is initialized lazily on the first WindowSizeMsg.
func NewChatView() ChatViewModel {
	return ChatViewModel{
		Messages: NewMessageList(),
		atBottom: true,
	}
}

// SetSize sets the viewport dimensions and triggers content re-render.
func (m *ChatViewModel) SetSize(w, h int) {
	m.Messages.SetWidth(w)
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// AddMessage appends a message and scrolls to bottom if auto-scroll is active.
func (m *ChatViewModel) AddMessage(msg ChatMessage) {
	m.Messages.Add(msg)
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Clear removes all messages and resets the viewport.
func (m *ChatViewModel) Clear() {
	m.Messages.Clear()
	m.refreshContent()
	m.atBottom = true
	m.Viewport.GotoTop()
}

// Update handles viewport scrolling and tracks auto-scroll state.
func (m ChatViewModel) Update(msg tea.Msg) (ChatViewModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)

	// Track whether user is at the bottom for smart auto-scroll.
	m.atBottom = m.Viewport.AtBottom()

	return m, cmd
}

// Len returns the number of messages on screen.
func (m ChatViewModel) Len() int {
	return len(m.Messages.Messages)
}

// Last returns the newest message, if any.
func (m ChatViewModel) Last() (ChatMessage, bool) {
	if len(m.Messages.Messages) == 0 {
		return ChatMessage{}, false
	}
	return m.Messages.Messages[len(m.Messages.Messages)-1], true
}

// View renders the chat viewport.
func (m ChatViewModel) View() string {
	if !m.ready {
		return "  Initializing..."
	}
	return m.Viewport.View()
}

func (m *ChatViewModel) refreshContent() {
	if !m.ready {
		return
	}
	content := m.Messages.View()
	m.Viewport.SetContent(content)
}
