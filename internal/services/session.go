package services

import (
	"context"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"cosmic-chicken-backend/internal/models"
)

var (
	ErrAlreadyInGame = errors.New("already in an active game")
	ErrNoActiveGame  = errors.New("no active game")
	ErrSyncTimeout   = errors.New("could not sync with the new game")
)

// ContractGateway is the slice of the chain gateway the reconciliation loop
// depends on.
type ContractGateway interface {
	Player() common.Address
	EntryFee(ctx context.Context) (*big.Int, error)
	MaxMultiplier(ctx context.Context) (int64, error)
	GameDuration(ctx context.Context) (time.Duration, error)
	ActiveBotGame(ctx context.Context, player common.Address) (*big.Int, error)
	BotGameInfo(ctx context.Context, gameID *big.Int) (*models.GameSnapshot, error)
	BotGameResult(ctx context.Context, gameID *big.Int) (*models.GameResult, error)
	PlayerBalance(ctx context.Context) (*big.Int, error)
	StartBotGame(ctx context.Context, fee *big.Int) error
	EjectFromBotGame(ctx context.Context) error
	ResetBotGame(ctx context.Context, player common.Address) error
	SubscribeGameEvents(ctx context.Context, sink chan<- models.GameEvent) (func(), error)
}

// SessionConfig tunes the reconciliation loop.
type SessionConfig struct {
	PollInterval      time.Duration // baseline re-read of the active game
	SyncAttempts      int           // read-side retries after a settled start
	SyncRetryInterval time.Duration
	GraceWindow       time.Duration // inactive-without-result tolerance
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.SyncAttempts <= 0 {
		c.SyncAttempts = 5
	}
	if c.SyncRetryInterval <= 0 {
		c.SyncRetryInterval = time.Second
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 15 * time.Second
	}
	return c
}

// GameSession reconciles the local GameStore with the contract. Three signal
// sources feed it: the poll ticker, transaction settlement (the action
// methods re-read state proactively after WaitMined), and the contract event
// subscription. None of the three is reliable on its own; the store's
// adoption/staleness rules arbitrate between them.
type GameSession struct {
	gateway     ContractGateway
	store       *GameStore
	interp      *Interpolator
	history     *HistoryService
	rounds      *RoundWatcher
	broadcaster Broadcaster
	clock       clockwork.Clock
	cfg         SessionConfig
	player      common.Address

	params   DisplayParams
	entryFee *big.Int

	// owned by the Run goroutine
	baseCtx       context.Context
	inactiveSince time.Time
}

func NewGameSession(gateway ContractGateway, store *GameStore, interp *Interpolator, broadcaster Broadcaster, clock clockwork.Clock, cfg SessionConfig) *GameSession {
	return &GameSession{
		gateway:     gateway,
		store:       store,
		interp:      interp,
		broadcaster: broadcaster,
		clock:       clock,
		cfg:         cfg.withDefaults(),
		player:      gateway.Player(),
		baseCtx:     context.Background(),
	}
}

// WithHistory attaches the optional Redis history feed.
func (s *GameSession) WithHistory(history *HistoryService) *GameSession {
	s.history = history
	return s
}

// WithRounds routes RoundFinished events to the multiplayer watcher.
func (s *GameSession) WithRounds(rounds *RoundWatcher) *GameSession {
	s.rounds = rounds
	return s
}

// Bootstrap reads the contract constants the display math depends on. Must
// be called before Run and before serving requests.
func (s *GameSession) Bootstrap(ctx context.Context) error {
	fee, err := s.gateway.EntryFee(ctx)
	if err != nil {
		return err
	}
	maxMult, err := s.gateway.MaxMultiplier(ctx)
	if err != nil {
		return err
	}
	duration, err := s.gateway.GameDuration(ctx)
	if err != nil {
		return err
	}

	s.entryFee = fee
	s.params = DisplayParams{
		GrowthDivisor: DefaultGrowthDivisor,
		MaxMultiplier: maxMult,
		RoundDuration: duration,
	}
	if s.interp != nil {
		s.interp.SetParams(s.params)
		s.interp.SetDefaultFee(fee)
	}
	return nil
}

// Params returns the display constants read at bootstrap.
func (s *GameSession) Params() DisplayParams {
	return s.params
}

// EntryFee returns the bot game entry fee read at bootstrap.
func (s *GameSession) EntryFee() *big.Int {
	if s.entryFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(s.entryFee)
}

// Run drives the reconciliation loop until ctx is cancelled. Event
// subscription failures degrade to poll-only operation.
func (s *GameSession) Run(ctx context.Context) {
	s.baseCtx = ctx

	events := make(chan models.GameEvent, 16)
	unsubscribe, err := s.gateway.SubscribeGameEvents(ctx, events)
	if err != nil {
		log.Printf("Event subscription unavailable, relying on polling: %v", err)
	} else {
		defer unsubscribe()
	}

	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.interp.Stop()
			return
		case <-ticker.Chan():
			s.pollOnce(ctx)
		case ev := <-events:
			s.handleEvent(ctx, ev)
		}
	}
}

// pollOnce is the baseline signal source: re-read the active game id and,
// when one is tracked, its snapshot. Read errors never clear existing state.
func (s *GameSession) pollOnce(ctx context.Context) {
	id, err := s.gateway.ActiveBotGame(ctx, s.player)
	if err != nil {
		log.Printf("Active game poll failed, retrying next tick: %v", err)
	} else if s.store.SetActiveGame(id) {
		log.Printf("Adopted game %s from poll", id)
	}

	current := s.store.CurrentGameID()
	if current == nil {
		s.inactiveSince = time.Time{}
		return
	}

	snap, err := s.gateway.BotGameInfo(ctx, current)
	if err != nil {
		log.Printf("Game info poll failed, retrying next tick: %v", err)
		return
	}

	if s.store.UpdateSnapshot(snap) {
		s.interp.Start(s.baseCtx)
	}

	if snap.IsActive {
		s.inactiveSince = time.Time{}
		return
	}

	// Inactive on-chain but no terminal signal yet. Give event delivery a
	// grace window before fetching the result directly.
	if s.inactiveSince.IsZero() {
		s.inactiveSince = s.clock.Now()
		return
	}
	if s.clock.Now().Sub(s.inactiveSince) >= s.cfg.GraceWindow {
		s.resolveStalled(ctx, current)
	}
}

// resolveStalled handles a game that went inactive without a settlement
// signal: fetch the result explicitly, or flag the session so the UI offers
// a manual reset.
func (s *GameSession) resolveStalled(ctx context.Context, gameID *big.Int) {
	result, err := s.gateway.BotGameResult(ctx, gameID)
	if err == nil {
		log.Printf("Recovered result for stalled game %s via direct read", gameID)
		s.finishGame(gameID, result)
		return
	}

	log.Printf("Game %s inactive past grace window and result fetch failed: %v", gameID, err)
	if s.store.MarkSyncLost() {
		s.broadcaster.BroadcastSyncLost()
	}
}

func (s *GameSession) handleEvent(ctx context.Context, ev models.GameEvent) {
	switch ev.Type {
	case models.EventBotGameStarted:
		if ev.Player != s.player {
			return
		}
		if s.store.SetActiveGame(ev.GameID) {
			log.Printf("Adopted game %s from BotGameStarted event", ev.GameID)
		}
		s.refreshSnapshot(ctx)

	case models.EventBotGameEnded:
		if ev.Player != s.player {
			return
		}
		s.finishGame(ev.GameID, &models.GameResult{
			GameID:          ev.GameID,
			PlayerWon:       ev.PlayerWon,
			Payout:          ev.Payout,
			FinalMultiplier: ev.FinalMultiplier,
		})

	case models.EventPlayerEjected:
		if ev.Player != s.player {
			return
		}
		// PlayerEjected carries no game id or payout; synthesize a win
		// result for the tracked game unless a richer one already landed.
		current := s.store.CurrentGameID()
		if current == nil {
			return
		}
		s.finishGame(current, &models.GameResult{
			GameID:          current,
			PlayerWon:       true,
			Payout:          new(big.Int),
			FinalMultiplier: new(big.Int),
		})

	case models.EventRoundFinished:
		if s.rounds != nil {
			s.rounds.OnRoundFinished(ev)
		}
	}
}

// refreshSnapshot re-reads the tracked game right away instead of waiting
// for the next poll tick.
func (s *GameSession) refreshSnapshot(ctx context.Context) {
	current := s.store.CurrentGameID()
	if current == nil {
		return
	}
	snap, err := s.gateway.BotGameInfo(ctx, current)
	if err != nil {
		log.Printf("Snapshot refresh failed for game %s: %v", current, err)
		return
	}
	if s.store.UpdateSnapshot(snap) {
		s.interp.Start(s.baseCtx)
	}
}

// finishGame applies a terminal result. The store rejects duplicates and
// stale ids, so calling this from every signal source is safe.
func (s *GameSession) finishGame(gameID *big.Int, result *models.GameResult) {
	if !s.store.SetResult(gameID, result) {
		return
	}

	s.interp.Stop()
	s.broadcaster.BroadcastGameOver(*result)
	s.inactiveSince = time.Time{}

	if s.history != nil {
		if err := s.history.SaveResult(s.player, models.ToResultRecord(result, s.clock.Now().Unix())); err != nil {
			log.Printf("Failed to record game result: %v", err)
		}
	}
}

// StartGame pays the entry fee and starts a bot game. After settlement it
// polls the read side for the new game id a bounded number of times; if the
// id never appears it reports ErrSyncTimeout rather than retrying forever.
func (s *GameSession) StartGame(ctx context.Context) error {
	if s.store.CurrentGameID() != nil {
		return ErrAlreadyInGame
	}

	fee := s.entryFee
	if fee == nil {
		var err error
		fee, err = s.gateway.EntryFee(ctx)
		if err != nil {
			return err
		}
	}

	if err := s.gateway.StartBotGame(ctx, fee); err != nil {
		// Submission failure or revert: state is untouched, caller retries.
		return err
	}

	for i := 0; i < s.cfg.SyncAttempts; i++ {
		id, err := s.gateway.ActiveBotGame(ctx, s.player)
		if err == nil && id != nil && id.Sign() > 0 {
			s.store.SetActiveGame(id)
			s.refreshSnapshot(ctx)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.cfg.SyncRetryInterval):
		}
	}
	return ErrSyncTimeout
}

// Eject cashes out of the running bot game. The outcome lands through the
// BotGameEnded event or the next poll.
func (s *GameSession) Eject(ctx context.Context) error {
	if s.store.CurrentGameID() == nil {
		return ErrNoActiveGame
	}
	if err := s.gateway.EjectFromBotGame(ctx); err != nil {
		return err
	}
	s.refreshSnapshot(ctx)
	return nil
}

// PlayAgain discards the consumed result and re-checks for an active game.
func (s *GameSession) PlayAgain(ctx context.Context) {
	s.store.ClearGame()
	s.interp.Stop()

	id, err := s.gateway.ActiveBotGame(ctx, s.player)
	if err != nil {
		log.Printf("Active game re-read after reset failed: %v", err)
		return
	}
	if s.store.SetActiveGame(id) {
		s.refreshSnapshot(ctx)
	}
}

// ForceReset is the manual escape hatch for a desynced game: try the
// on-chain reset, then clear local state regardless.
func (s *GameSession) ForceReset(ctx context.Context) error {
	if err := s.gateway.ResetBotGame(ctx, s.player); err != nil {
		log.Printf("On-chain reset failed, clearing local state only: %v", err)
	}
	s.store.ClearGame()
	s.interp.Stop()
	return nil
}

// State returns the store view.
func (s *GameSession) State() models.BotState {
	return s.store.State()
}

// Display computes the current display estimate on demand (REST reads; the
// WS stream gets the same values from the interpolator).
func (s *GameSession) Display() models.DisplayState {
	snap := s.store.Snapshot()
	if snap == nil || !snap.HasStarted() {
		return DefaultDisplay(s.params, s.entryFee)
	}
	display, _ := ComputeDisplay(snap, s.clock.Now(), s.params)
	return display
}

// WalletBalance reads the player's native token balance.
func (s *GameSession) WalletBalance(ctx context.Context) (*big.Int, error) {
	return s.gateway.PlayerBalance(ctx)
}

// Player returns the address this session plays as.
func (s *GameSession) Player() common.Address {
	return s.player
}
