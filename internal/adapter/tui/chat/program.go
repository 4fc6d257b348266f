package chat

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"scoutchat/internal/usecase"
)

// App runs the chat model as a full-screen Bubble Tea program.
type App struct {
	logger    *slog.Logger
	conv      *usecase.Conversation
	modelName string
	program   *tea.Program
}

// NewApp creates a TUI over conv.
func NewApp(conv *usecase.Conversation, modelName string, logger *slog.Logger) *App {
	return &App{logger: logger, conv: conv, modelName: modelName}
}

// Run creates the Bubble Tea program and blocks until it exits or ctx is
// cancelled.
func (a *App) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	model := NewChatModel(ChatModelDeps{
		Conversation: a.conv,
		Logger:       a.logger,
		ModelName:    a.modelName,
	})

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}, opts...)
	a.program = tea.NewProgram(model, opts...)

	// Phase changes arrive on the turn goroutine.
	a.conv.OnPhase(func(p usecase.Phase) {
		a.program.Send(PhaseMsg{Phase: p})
	})
	defer a.conv.OnPhase(nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			a.program.Send(QuitMsg{})
		case <-done:
		}
	}()

	_, err := a.program.Run()
	if err != nil {
		a.logger.Error("tui exited with error", "error", err)
	}
	return err
}
