package services

import (
	"context"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"cosmic-chicken-backend/internal/models"
)

// RoundGateway is the slice of the chain gateway the multiplayer watcher
// depends on.
type RoundGateway interface {
	Player() common.Address
	CurrentRound(ctx context.Context) (*models.RoundInfo, error)
	IsPlayerInRound(ctx context.Context, player common.Address) (bool, error)
	JoinRound(ctx context.Context, fee *big.Int) error
	EjectFromRound(ctx context.Context) error
	WithdrawWinnings(ctx context.Context) error
}

// RoundWatcher keeps a polled view of the multiplayer "last player wins"
// round and exposes the join/eject/withdraw actions. The contract has no
// round fee getter, so the fee is injected configuration.
type RoundWatcher struct {
	gateway      RoundGateway
	broadcaster  Broadcaster
	clock        clockwork.Clock
	pollInterval time.Duration
	entryFee     *big.Int
	player       common.Address

	mu    sync.Mutex
	state models.RoundState
}

func NewRoundWatcher(gateway RoundGateway, broadcaster Broadcaster, clock clockwork.Clock, pollInterval time.Duration, entryFee *big.Int) *RoundWatcher {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &RoundWatcher{
		gateway:      gateway,
		broadcaster:  broadcaster,
		clock:        clock,
		pollInterval: pollInterval,
		entryFee:     entryFee,
		player:       gateway.Player(),
	}
}

// Run polls the round snapshot until ctx is cancelled.
func (w *RoundWatcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.pollOnce(ctx)
		}
	}
}

func (w *RoundWatcher) pollOnce(ctx context.Context) {
	info, err := w.gateway.CurrentRound(ctx)
	if err != nil {
		log.Printf("Round poll failed, retrying next tick: %v", err)
		return
	}

	inRound, err := w.gateway.IsPlayerInRound(ctx, w.player)
	if err != nil {
		log.Printf("Round membership poll failed, retrying next tick: %v", err)
		return
	}

	state := models.RoundState{
		RoundInfo: *info,
		InRound:   inRound,
		TimeLeft:  w.timeLeft(info.EndTime),
	}

	w.mu.Lock()
	w.state = state
	w.mu.Unlock()

	w.broadcaster.BroadcastRoundUpdate(state)
}

func (w *RoundWatcher) timeLeft(endTime time.Time) float64 {
	if endTime.IsZero() {
		return 0
	}
	left := endTime.Sub(w.clock.Now()).Seconds()
	if left < 0 {
		return 0
	}
	return left
}

// OnRoundFinished applies a RoundFinished event without waiting for the next
// poll tick.
func (w *RoundWatcher) OnRoundFinished(ev models.GameEvent) {
	w.mu.Lock()
	w.state.IsFinished = true
	w.state.TimeLeft = 0
	if ev.PrizeAmount != nil {
		w.state.PrizePool = new(big.Int).Set(ev.PrizeAmount)
	}
	w.state.LastPlayer = ev.Winner
	state := w.state
	w.mu.Unlock()

	log.Printf("Round finished, winner %s", ev.Winner.Hex())
	w.broadcaster.BroadcastRoundUpdate(state)
}

// State returns the latest round view with the countdown recomputed at read
// time.
func (w *RoundWatcher) State() models.RoundState {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.state
	if !state.IsFinished {
		state.TimeLeft = w.timeLeft(state.EndTime)
	}
	return state
}

// Join pays the round fee and refreshes the view after settlement.
func (w *RoundWatcher) Join(ctx context.Context) error {
	if err := w.gateway.JoinRound(ctx, w.entryFee); err != nil {
		return err
	}
	w.pollOnce(ctx)
	return nil
}

// Eject leaves the round, forfeiting the fee.
func (w *RoundWatcher) Eject(ctx context.Context) error {
	if err := w.gateway.EjectFromRound(ctx); err != nil {
		return err
	}
	w.pollOnce(ctx)
	return nil
}

// Withdraw claims any winnings held by the contract.
func (w *RoundWatcher) Withdraw(ctx context.Context) error {
	return w.gateway.WithdrawWinnings(ctx)
}

// EntryFee returns the configured round entry fee.
func (w *RoundWatcher) EntryFee() *big.Int {
	if w.entryFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.entryFee)
}
