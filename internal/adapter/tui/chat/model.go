package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scoutchat/internal/adapter/tui/components"
	"scoutchat/internal/adapter/tui/theme"
	"scoutchat/internal/adapter/tui/uxerror"
	"scoutchat/internal/domain"
	"scoutchat/internal/usecase"
)

// Conversation is the transcript the chat model drives.
type Conversation interface {
	Begin(input string, web bool) (*usecase.PendingTurn, error)
	Reset() error
	Web() bool
	SetWeb(on bool)
}

// ChatModelDeps are dependencies injected into the chat model.
type ChatModelDeps struct {
	Conversation Conversation
	Logger       *slog.Logger
	ModelName    string
}

var slashCommands = []components.CommandDef{
	{Name: "/help", Description: "Show available commands"},
	{Name: "/web", Args: "[on|off]", Description: "Toggle web search"},
	{Name: "/clear", Description: "Clear conversation"},
	{Name: "/quit", Description: "Exit scoutchat", Aliases: []string{"/exit"}},
}

var helpText = "Available commands:\n" + components.HelpLines(slashCommands) + "\n\n" + keyHelp

const keyHelp = `Keybindings:
  Enter       - Send message
  Alt+Enter   - New line
  Ctrl+W      - Toggle web search
  Ctrl+L      - Clear conversation
  Ctrl+C      - Cancel request / Quit
  PgUp/PgDn   - Scroll chat`

// ChatModel is the root Bubble Tea model for the chat TUI.
type ChatModel struct {
	deps ChatModelDeps

	chatView  components.ChatViewModel
	input     components.InputAreaModel
	statusBar components.StatusBarModel
	spinner   spinner.Model

	waiting    bool // a turn is in flight
	cancelling bool // Ctrl+C pressed, waiting for the turn to unwind
	width      int
	height     int
	quitting   bool

	// gen is bumped on every submission; TurnDoneMsg with an older gen is dropped.
	gen      uint64
	cancelFn context.CancelFunc
}

// NewChatModel creates the root chat model.
func NewChatModel(deps ChatModelDeps) ChatModel {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	web := deps.Conversation.Web()

	sb := components.NewStatusBar()
	sb.ModelName = deps.ModelName
	sb.Web = web
	sb.Hints = defaultHints()

	input := components.NewInputArea(slashCommands)
	input.SetWebMode(web)

	return ChatModel{
		deps:      deps,
		chatView:  components.NewChatView(),
		input:     input,
		statusBar: sb,
		spinner:   s,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case components.InputSubmitMsg:
		return m.handleSubmit(msg.Value)

	case PhaseMsg:
		if m.waiting && !m.cancelling {
			m.statusBar.Extra = phaseText(msg.Phase)
		}
		return m, nil

	case TurnDoneMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		return m.handleTurnDone(msg.Turn)

	case QuitMsg:
		return m.quit()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.waiting {
		if _, isMouse := msg.(tea.MouseMsg); !isMouse {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the entire chat UI.
func (m ChatModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	inputView := m.input.View()
	if m.waiting {
		inputView = lipgloss.NewStyle().Faint(true).Render("> waiting for response...") +
			"\n" + m.spinner.View() + " " + m.statusBar.Extra
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.chatView.View(),
		components.Divider(m.width),
		inputView,
		m.statusBar.View(),
	)
}

// layout recalculates sizes for all sub-models.
func (m *ChatModel) layout() {
	const inputH, statusH, dividerH = 3, 1, 1
	contentH := m.height - inputH - statusH - dividerH
	if contentH < 5 {
		contentH = 5
	}

	m.statusBar.SetWidth(m.width)
	m.chatView.SetSize(m.width, contentH)
	m.input.SetWidth(m.width)
}

// isMouseEscapeLeak detects mouse escape sequences (SGR, X11, URXVT) that
// some terminals deliver as key input during fast trackpad scrolling.
func isMouseEscapeLeak(s string) bool {
	digitsAndSemis := func(r string) bool {
		for _, c := range r {
			if c != ';' && (c < '0' || c > '9') {
				return false
			}
		}
		return true
	}
	switch {
	case len(s) >= 5 && s[0] == '<' && (s[len(s)-1] == 'M' || s[len(s)-1] == 'm'):
		return digitsAndSemis(s[1 : len(s)-1])
	case len(s) >= 2 && s[0] == '[' && (s[1] == 'M' || s[1] == 'm'):
		return true
	case len(s) >= 5 && s[0] == '[' && s[len(s)-1] == 'M':
		return digitsAndSemis(s[1 : len(s)-1])
	}
	return false
}

// handleKey processes keyboard input.
func (m ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isMouseEscapeLeak(msg.String()) {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.waiting && !m.cancelling {
			m.cancelRequest()
			return m, nil
		}
		return m.quit()

	case tea.KeyCtrlW:
		m.setWeb(!m.deps.Conversation.Web())
		return m, nil

	case tea.KeyCtrlL:
		return m.handleSlashCommand("/clear", nil)

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}

	if m.waiting {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit appends the user message and starts the turn in the background.
func (m ChatModel) handleSubmit(value string) (tea.Model, tea.Cmd) {
	if cmd, args, ok := components.ParseSlashCommand(value); ok {
		return m.handleSlashCommand(cmd, args)
	}

	web := m.deps.Conversation.Web()
	pending, err := m.deps.Conversation.Begin(value, web)
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return m, nil
	case err != nil:
		m.addSystem(theme.SymbolWarning + " " + uxerror.Humanize(err).Render())
		return m, nil
	}

	m.chatView.AddMessage(components.ChatMessage{
		Role:      components.RoleUser,
		Content:   pending.User().Content,
		Timestamp: pending.User().Timestamp,
	})

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	m.waiting = true
	m.cancelling = false
	m.input.SetEnabled(false)
	if web {
		m.statusBar.Extra = phaseText(usecase.PhaseSearching)
	} else {
		m.statusBar.Extra = phaseText(usecase.PhaseThinking)
	}
	m.statusBar.Hints = busyHints()

	return m, completeTurnCmd(ctx, pending, m.gen)
}

// handleTurnDone renders the assistant side of a finished turn.
func (m ChatModel) handleTurnDone(turn *domain.Turn) (tea.Model, tea.Cmd) {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.waiting = false
	m.cancelling = false
	m.input.SetEnabled(true)
	m.statusBar.Extra = ""
	m.statusBar.Hints = defaultHints()

	if turn == nil {
		return m, nil
	}

	if turn.Search.Failed() {
		fe := uxerror.Humanize(turn.Search.Err)
		m.addSystem(fmt.Sprintf("%s Web search failed (%s: %s). Answering without web results.",
			theme.SymbolWarning, fe.Title, domain.DetailOf(turn.Search.Err)))
	}

	if turn.Failure != nil {
		if turn.Failure.Kind == domain.FailureCanceled {
			m.addSystem("Request cancelled.")
			return m, nil
		}
		m.chatView.AddMessage(components.ChatMessage{
			Role:      components.RoleError,
			Content:   turn.Reply.Content,
			Hint:      uxerror.Humanize(turn.Failure.Err).Render(),
			Timestamp: turn.Reply.Timestamp,
		})
		return m, nil
	}

	m.chatView.AddMessage(components.ChatMessage{
		Role:      components.RoleAssistant,
		Content:   turn.Reply.Content,
		Web:       turn.Search.OK,
		Timestamp: turn.Reply.Timestamp,
	})
	return m, nil
}

// handleSlashCommand processes a slash command.
func (m ChatModel) handleSlashCommand(cmd string, args []string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "/help":
		m.addSystem(helpText)
		return m, nil

	case "/quit", "/exit":
		return m.quit()

	case "/clear":
		if err := m.deps.Conversation.Reset(); err != nil {
			m.addSystem(theme.SymbolWarning + " " + uxerror.Humanize(err).Render())
			return m, nil
		}
		m.chatView.Clear()
		m.addSystem(theme.SymbolSuccess + " Conversation cleared.")
		return m, nil

	case "/web":
		on := !m.deps.Conversation.Web()
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "on", "true", "1":
				on = true
			case "off", "false", "0":
				on = false
			default:
				m.addSystem("Usage: /web [on|off]")
				return m, nil
			}
		}
		m.setWeb(on)
		return m, nil

	default:
		m.addSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
		return m, nil
	}
}

func (m *ChatModel) setWeb(on bool) {
	m.deps.Conversation.SetWeb(on)
	m.statusBar.Web = on
	m.input.SetWebMode(on)
	if on {
		m.addSystem(theme.SymbolGlobe + " Web search on. Questions are answered from live search results.")
	} else {
		m.addSystem("Web search off.")
	}
}

// cancelRequest cancels the in-flight turn. The turn still reports back
// through TurnDoneMsg, which resets the UI.
func (m *ChatModel) cancelRequest() {
	if m.cancelFn != nil {
		m.cancelFn()
	}
	m.cancelling = true
	m.statusBar.Extra = "Cancelling" + theme.SymbolEllipsis
}

func (m ChatModel) quit() (tea.Model, tea.Cmd) {
	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *ChatModel) addSystem(content string) {
	m.chatView.AddMessage(components.ChatMessage{
		Role:    components.RoleSystem,
		Content: content,
	})
}

func phaseText(p usecase.Phase) string {
	if p == usecase.PhaseSearching {
		return "Searching the web" + theme.SymbolEllipsis
	}
	return "Thinking" + theme.SymbolEllipsis
}

func defaultHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Ctrl+W", Desc: "Web"},
		{Key: "/help", Desc: "Help"},
		{Key: "Ctrl+C", Desc: "Quit"},
	}
}

func busyHints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "Ctrl+C", Desc: "Cancel"},
		{Key: "PgUp/PgDn", Desc: "Scroll"},
	}
}
