package services

import (
	"log"
	"math/big"
	"sync"

	"cosmic-chicken-backend/internal/models"
)

// GameStore is the single source of truth for which bot game, if any, the
// player is in and what is known about it. Only the reconciliation loop
// mutates it; the interpolation loop and the HTTP/WS surface read it.
type GameStore struct {
	mu            sync.Mutex
	currentGameID *big.Int
	snapshot      *models.GameSnapshot
	result        *models.GameResult
	gameOver      bool
	syncLost      bool
	lastFinished  *big.Int
}

func NewGameStore() *GameStore {
	return &GameStore{}
}

// SetActiveGame adopts a new game id and clears any stale result. Zero/nil
// ids, the id already tracked and the id of the game that just finished are
// all rejected.
func (s *GameStore) SetActiveGame(gameID *big.Int) bool {
	if gameID == nil || gameID.Sign() <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentGameID != nil && s.currentGameID.Cmp(gameID) == 0 {
		return false
	}
	if s.lastFinished != nil && s.lastFinished.Cmp(gameID) == 0 {
		return false
	}

	s.currentGameID = new(big.Int).Set(gameID)
	s.snapshot = nil
	s.result = nil
	s.gameOver = false
	s.syncLost = false
	return true
}

// UpdateSnapshot stores a freshly polled snapshot for the tracked game.
// Returns true when the game transitioned to a started, animatable state.
func (s *GameStore) UpdateSnapshot(snap *models.GameSnapshot) bool {
	if snap == nil || snap.GameID == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameOver || s.currentGameID == nil || s.currentGameID.Cmp(snap.GameID) != 0 {
		return false
	}

	wasStarted := s.snapshot.HasStarted()
	copied := *snap
	s.snapshot = &copied
	return !wasStarted && copied.HasStarted()
}

// SetResult records the terminal outcome for the tracked game. It is
// idempotent: once the game is over, or when the result refers to a
// stale/foreign game id, the call is a no-op. On acceptance the result,
// the game-over flag and the cleared current id become visible atomically.
func (s *GameStore) SetResult(gameID *big.Int, result *models.GameResult) bool {
	if gameID == nil || result == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameOver {
		log.Printf("Ignoring settlement signal for game %s: game already over (possible duplicate event)", gameID)
		return false
	}
	if s.currentGameID == nil || s.currentGameID.Cmp(gameID) != 0 {
		log.Printf("Ignoring settlement signal for stale game %s", gameID)
		return false
	}

	copied := *result
	s.result = &copied
	s.gameOver = true
	s.lastFinished = s.currentGameID
	s.currentGameID = nil
	s.syncLost = false
	if s.snapshot != nil {
		s.snapshot.IsActive = false
	}
	return true
}

// MarkSyncLost flags that the game went inactive on-chain but no terminal
// signal arrived within the grace window, so the UI should offer a manual
// reset. Returns false if there is nothing to flag or it is already set.
func (s *GameStore) MarkSyncLost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentGameID == nil || s.gameOver || s.syncLost {
		return false
	}
	s.syncLost = true
	return true
}

// ClearGame resets the store to its initial state ("play again").
func (s *GameStore) ClearGame() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentGameID = nil
	s.snapshot = nil
	s.result = nil
	s.gameOver = false
	s.syncLost = false
	s.lastFinished = nil
}

// CurrentGameID returns a copy of the tracked game id, nil when none.
func (s *GameStore) CurrentGameID() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentGameID == nil {
		return nil
	}
	return new(big.Int).Set(s.currentGameID)
}

// Snapshot returns a copy of the latest on-chain snapshot, nil when none.
func (s *GameStore) Snapshot() *models.GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil
	}
	copied := *s.snapshot
	return &copied
}

// State returns a consistent copy of the full store view.
func (s *GameStore) State() models.BotState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := models.BotState{
		GameOver: s.gameOver,
		SyncLost: s.syncLost,
	}
	if s.currentGameID != nil {
		state.CurrentGameID = new(big.Int).Set(s.currentGameID)
	}
	if s.snapshot != nil {
		copied := *s.snapshot
		state.Snapshot = &copied
	}
	if s.result != nil {
		copied := *s.result
		state.Result = &copied
	}
	return state
}
