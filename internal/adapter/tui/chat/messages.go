// Package chat implements the Bubble Tea chat client for scoutchat.
package chat

import (
	"scoutchat/internal/domain"
	"scoutchat/internal/usecase"
)

// TurnDoneMsg carries a finished turn back into the update loop.
// Gen identifies the submission so stale results can be discarded.
type TurnDoneMsg struct {
	Turn *domain.Turn
	Gen  uint64
}

// PhaseMsg reports that the in-flight turn moved to a new phase.
type PhaseMsg struct {
	Phase usecase.Phase
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
