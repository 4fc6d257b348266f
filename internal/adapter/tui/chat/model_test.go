package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/adapter/tui/components"
	"scoutchat/internal/domain"
	"scoutchat/internal/infra/config"
	"scoutchat/internal/usecase"
)

type stubLLM struct {
	reply string
	err   error
	gate  chan struct{}
}

func (s *stubLLM) Chat(ctx context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: s.reply}}, nil
}

func (s *stubLLM) Name() string { return "stub" }

type stubSearcher struct {
	content string
	err     error
}

func (s *stubSearcher) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SearchResponse{Query: req.Query, Content: s.content}, nil
}

func (s *stubSearcher) Name() string { return "stub" }

func newTestModel(t *testing.T, llm domain.LLMProvider, searcher domain.Searcher) (ChatModel, *usecase.Conversation) {
	t.Helper()
	prompts, err := usecase.NewPromptBuilder(config.Defaults().Chat.Prompt)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conv := usecase.NewConversation(usecase.ConversationDeps{
		LLM:      llm,
		Searcher: searcher,
		Prompts:  prompts,
		Logger:   logger,
	})
	m := NewChatModel(ChatModelDeps{Conversation: conv, Logger: logger, ModelName: "test-model"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(ChatModel), conv
}

func update(t *testing.T, m ChatModel, msg tea.Msg) (ChatModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(ChatModel), cmd
}

// submit sends input and runs the resulting turn to completion.
func submit(t *testing.T, m ChatModel, input string) ChatModel {
	t.Helper()
	m, cmd := update(t, m, components.InputSubmitMsg{Value: input})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	msg := cmd()
	m, _ = update(t, m, msg)
	return m
}

func lastMessage(t *testing.T, m ChatModel) components.ChatMessage {
	t.Helper()
	msg, ok := m.chatView.Last()
	require.True(t, ok)
	return msg
}

func TestSubmitShowsAssistantReply(t *testing.T) {
	m, conv := newTestModel(t, &stubLLM{reply: "Hello there"}, nil)

	m = submit(t, m, "hi")

	assert.False(t, m.waiting)
	assert.True(t, m.input.Enabled)
	assert.Equal(t, 2, m.chatView.Len())
	last := lastMessage(t, m)
	assert.Equal(t, components.RoleAssistant, last.Role)
	assert.Equal(t, "Hello there", last.Content)
	assert.Len(t, conv.Messages(), 2)
}

func TestSubmitDisablesInputAndShowsPhase(t *testing.T) {
	m, _ := newTestModel(t, &stubLLM{reply: "x"}, &stubSearcher{content: "results"})
	m.setWeb(true)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "weather"})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.False(t, m.input.Enabled)
	assert.Equal(t, phaseText(usecase.PhaseSearching), m.statusBar.Extra)

	m, _ = update(t, m, PhaseMsg{Phase: usecase.PhaseThinking})
	assert.Equal(t, phaseText(usecase.PhaseThinking), m.statusBar.Extra)

	m, _ = update(t, m, cmd())
	assert.Empty(t, m.statusBar.Extra)
	assert.True(t, lastMessage(t, m).Web)
}

func TestWhitespaceSubmitIsNoop(t *testing.T) {
	m, conv := newTestModel(t, &stubLLM{reply: "x"}, nil)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "   \n"})
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Equal(t, 0, m.chatView.Len())
	assert.Empty(t, conv.Messages())
}

func TestFailedTurnShowsErrorBubble(t *testing.T) {
	llmErr := domain.NewDomainError("llm.chat", domain.ErrAuthInvalid, "API Error: 401 - invalid key")
	m, _ := newTestModel(t, &stubLLM{err: llmErr}, nil)

	m = submit(t, m, "hi")

	last := lastMessage(t, m)
	assert.Equal(t, components.RoleError, last.Role)
	assert.Equal(t, "Error: API Error: 401 - invalid key", last.Content)
	assert.Contains(t, last.Hint, "Authentication Failed")
}

func TestSearchFailureAddsNotice(t *testing.T) {
	m, _ := newTestModel(t, &stubLLM{reply: "from memory"}, &stubSearcher{err: domain.ErrSearchBlocked})
	m.setWeb(true)
	before := m.chatView.Len()

	m = submit(t, m, "news")

	msgs := m.chatView.Messages.Messages[before:]
	require.Len(t, msgs, 3)
	assert.Equal(t, components.RoleUser, msgs[0].Role)
	assert.Equal(t, components.RoleSystem, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Web search failed")
	assert.Equal(t, components.RoleAssistant, msgs[2].Role)
	assert.False(t, msgs[2].Web)
}

func TestCtrlCCancelsThenQuits(t *testing.T) {
	llm := &stubLLM{gate: make(chan struct{})}
	m, conv := newTestModel(t, llm, nil)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "slow"})
	require.NotNil(t, cmd)

	m, quitCmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, quitCmd)
	assert.True(t, m.cancelling)

	m, _ = update(t, m, cmd())
	assert.False(t, m.waiting)
	assert.Equal(t, "Request cancelled.", lastMessage(t, m).Content)
	assert.False(t, conv.Busy())

	m, quitCmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, quitCmd)
	assert.True(t, m.quitting)
	assert.IsType(t, tea.QuitMsg{}, quitCmd())
}

func TestStaleTurnIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, &stubLLM{reply: "x"}, nil)
	m.waiting = true
	m.gen = 2

	m, _ = update(t, m, TurnDoneMsg{Turn: &domain.Turn{}, Gen: 1})
	assert.True(t, m.waiting)
}

func TestWebToggle(t *testing.T) {
	m, conv := newTestModel(t, &stubLLM{reply: "x"}, nil)
	assert.Equal(t, "WEB OFF", m.statusBar.WebLabel())
	assert.Equal(t, components.PlaceholderChat, m.input.Placeholder())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.True(t, conv.Web())
	assert.Equal(t, "WEB ON", m.statusBar.WebLabel())
	assert.Equal(t, components.PlaceholderWeb, m.input.Placeholder())
	assert.Contains(t, m.View(), "WEB ON")

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/web off"})
	assert.False(t, conv.Web())
	assert.Equal(t, "WEB OFF", m.statusBar.WebLabel())

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/web"})
	assert.True(t, conv.Web())

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/web maybe"})
	assert.True(t, conv.Web())
	assert.Contains(t, lastMessage(t, m).Content, "Usage")
}

func TestSlashCommands(t *testing.T) {
	m, conv := newTestModel(t, &stubLLM{reply: "x"}, nil)
	m = submit(t, m, "hi")
	require.Len(t, conv.Messages(), 2)

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/help"})
	assert.Contains(t, lastMessage(t, m).Content, "Available commands")

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/clear"})
	assert.Empty(t, conv.Messages())
	assert.Equal(t, 1, m.chatView.Len())

	m, _ = update(t, m, components.InputSubmitMsg{Value: "/nope"})
	assert.True(t, strings.HasPrefix(lastMessage(t, m).Content, "Unknown command: /nope"))

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "/quit"})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Equal(t, "Goodbye!\n", m.View())
}

func TestClearRefusedWhileBusy(t *testing.T) {
	llm := &stubLLM{reply: "x", gate: make(chan struct{})}
	m, conv := newTestModel(t, llm, nil)

	m, cmd := update(t, m, components.InputSubmitMsg{Value: "slow"})
	require.NotNil(t, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Len(t, conv.Messages(), 1)
	assert.Contains(t, lastMessage(t, m).Content, "Still Working")

	close(llm.gate)
	m, _ = update(t, m, cmd())
	assert.Equal(t, "x", lastMessage(t, m).Content)
}

func TestMouseEscapeLeak(t *testing.T) {
	assert.True(t, isMouseEscapeLeak("<65;38;21M"))
	assert.True(t, isMouseEscapeLeak("[M!!"))
	assert.True(t, isMouseEscapeLeak("[64;10;5M"))
	assert.False(t, isMouseEscapeLeak("hello"))
	assert.False(t, isMouseEscapeLeak("<a;b>M"))
}
