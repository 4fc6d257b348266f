package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"scoutchat/internal/usecase"
)

// completeTurnCmd runs the network half of a turn in a background goroutine.
// gen identifies the submission so a stale result can be discarded.
func completeTurnCmd(ctx context.Context, pending *usecase.PendingTurn, gen uint64) tea.Cmd {
	return func() tea.Msg {
		return TurnDoneMsg{Turn: pending.Complete(ctx), Gen: gen}
	}
}
