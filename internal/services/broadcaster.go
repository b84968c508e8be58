package services

import "cosmic-chicken-backend/internal/models"

// Broadcaster pushes state changes to connected UI clients.
type Broadcaster interface {
	BroadcastDisplayUpdate(display models.DisplayState)
	BroadcastGameOver(result models.GameResult)
	BroadcastRoundUpdate(state models.RoundState)
	BroadcastSyncLost()
}

// NopBroadcaster discards everything. Used in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastDisplayUpdate(models.DisplayState) {}
func (NopBroadcaster) BroadcastGameOver(models.GameResult)        {}
func (NopBroadcaster) BroadcastRoundUpdate(models.RoundState)     {}
func (NopBroadcaster) BroadcastSyncLost()                         {}
