package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"

	"cosmic-chicken-backend/internal/models"
)

var (
	testPlayer = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeGateway is an in-memory ContractGateway for exercising the
// reconciliation loop without a chain.
type fakeGateway struct {
	activeID    *big.Int
	activeErr   error
	snapshot    *models.GameSnapshot
	snapshotErr error
	result      *models.GameResult
	resultErr   error
	startErr    error

	activeCalls int
	startCalls  int
	ejectCalls  int
	resetCalls  int
}

func (f *fakeGateway) Player() common.Address { return testPlayer }

func (f *fakeGateway) EntryFee(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e18), nil
}

func (f *fakeGateway) MaxMultiplier(ctx context.Context) (int64, error) { return 500, nil }

func (f *fakeGateway) GameDuration(ctx context.Context) (time.Duration, error) {
	return 30 * time.Second, nil
}

func (f *fakeGateway) ActiveBotGame(ctx context.Context, player common.Address) (*big.Int, error) {
	f.activeCalls++
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	if f.activeID == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(f.activeID), nil
}

func (f *fakeGateway) BotGameInfo(ctx context.Context, gameID *big.Int) (*models.GameSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	copied := *f.snapshot
	return &copied, nil
}

func (f *fakeGateway) BotGameResult(ctx context.Context, gameID *big.Int) (*models.GameResult, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	copied := *f.result
	return &copied, nil
}

func (f *fakeGateway) PlayerBalance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(5e18), nil
}

func (f *fakeGateway) StartBotGame(ctx context.Context, fee *big.Int) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeGateway) EjectFromBotGame(ctx context.Context) error {
	f.ejectCalls++
	return nil
}

func (f *fakeGateway) ResetBotGame(ctx context.Context, player common.Address) error {
	f.resetCalls++
	return nil
}

func (f *fakeGateway) SubscribeGameEvents(ctx context.Context, sink chan<- models.GameEvent) (func(), error) {
	return nil, errors.New("no ws endpoint in tests")
}

type recordBroadcaster struct {
	mu        sync.Mutex
	gameOvers []models.GameResult
	syncLost  int
}

func (b *recordBroadcaster) BroadcastDisplayUpdate(models.DisplayState) {}

func (b *recordBroadcaster) BroadcastGameOver(result models.GameResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gameOvers = append(b.gameOvers, result)
}

func (b *recordBroadcaster) BroadcastRoundUpdate(models.RoundState) {}

func (b *recordBroadcaster) BroadcastSyncLost() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLost++
}

func (b *recordBroadcaster) gameOverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.gameOvers)
}

func newTestSession(t *testing.T, gw *fakeGateway, bc Broadcaster) (*GameSession, *GameStore, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := NewGameStore()
	interp := NewInterpolator(store, NopBroadcaster{}, clock)
	session := NewGameSession(gw, store, interp, bc, clock, SessionConfig{})
	if err := session.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	return session, store, clock
}

func TestStartGameAdoptsNewGame(t *testing.T) {
	gw := &fakeGateway{
		activeID: big.NewInt(1),
		snapshot: startedSnapshot(1),
	}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})

	if err := session.StartGame(context.Background()); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if gw.startCalls != 1 {
		t.Errorf("startCalls = %d, want 1", gw.startCalls)
	}
	if id := store.CurrentGameID(); id == nil || id.Int64() != 1 {
		t.Errorf("CurrentGameID = %v, want 1", id)
	}
	if snap := store.Snapshot(); snap == nil || !snap.HasStarted() {
		t.Error("snapshot should be fetched right after the sync read")
	}
}

func TestStartGameWhileTrackingReturnsConflict(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(1), snapshot: startedSnapshot(1)}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})
	store.SetActiveGame(big.NewInt(1))

	if err := session.StartGame(context.Background()); !errors.Is(err, ErrAlreadyInGame) {
		t.Errorf("err = %v, want ErrAlreadyInGame", err)
	}
	if gw.startCalls != 0 {
		t.Error("no transaction should be sent while a game is tracked")
	}
}

func TestStartGameSyncTimeoutAfterBoundedRetries(t *testing.T) {
	// The transaction settles but the read side never reports the new id.
	gw := &fakeGateway{}
	session, store, clock := newTestSession(t, gw, NopBroadcaster{})

	done := make(chan error, 1)
	go func() {
		done <- session.StartGame(context.Background())
	}()

	for i := 0; i < 5; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}

	if err := <-done; !errors.Is(err, ErrSyncTimeout) {
		t.Fatalf("err = %v, want ErrSyncTimeout", err)
	}
	if gw.activeCalls != 5 {
		t.Errorf("activeCalls = %d, want exactly 5", gw.activeCalls)
	}
	if store.CurrentGameID() != nil {
		t.Error("no game should be tracked after a sync timeout")
	}
}

func TestPollAdoptsGameAndKeepsStateOnReadErrors(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(3), snapshot: startedSnapshot(3)}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})

	session.pollOnce(context.Background())
	if id := store.CurrentGameID(); id == nil || id.Int64() != 3 {
		t.Fatalf("CurrentGameID = %v, want 3", id)
	}

	// Transient read failures must never clear an adopted game.
	gw.activeErr = errors.New("rpc down")
	gw.snapshotErr = errors.New("rpc down")
	session.pollOnce(context.Background())

	if id := store.CurrentGameID(); id == nil || id.Int64() != 3 {
		t.Errorf("CurrentGameID after read errors = %v, want 3", id)
	}
	if store.State().SyncLost {
		t.Error("read errors alone must not flag sync loss")
	}
}

func TestGraceWindowRecoversResultByDirectRead(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(4), snapshot: startedSnapshot(4)}
	bc := &recordBroadcaster{}
	session, store, clock := newTestSession(t, gw, bc)

	session.pollOnce(context.Background())

	// The game goes inactive on-chain with no settlement event.
	inactive := startedSnapshot(4)
	inactive.IsActive = false
	gw.snapshot = inactive
	gw.result = &models.GameResult{
		GameID:          big.NewInt(4),
		PlayerWon:       true,
		Payout:          big.NewInt(3e18),
		FinalMultiplier: big.NewInt(300),
	}

	session.pollOnce(context.Background()) // starts the grace window
	if store.State().GameOver {
		t.Fatal("settlement must wait out the grace window")
	}

	clock.Advance(15 * time.Second)
	session.pollOnce(context.Background())

	state := store.State()
	if !state.GameOver {
		t.Fatal("result should be recovered by direct read after the grace window")
	}
	if state.Result == nil || !state.Result.PlayerWon {
		t.Error("recovered result should be the direct read")
	}
	if bc.gameOverCount() != 1 {
		t.Errorf("gameOver broadcasts = %d, want 1", bc.gameOverCount())
	}
}

func TestGraceWindowFlagsSyncLostWhenResultUnavailable(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(4), snapshot: startedSnapshot(4)}
	bc := &recordBroadcaster{}
	session, store, clock := newTestSession(t, gw, bc)

	session.pollOnce(context.Background())

	inactive := startedSnapshot(4)
	inactive.IsActive = false
	gw.snapshot = inactive
	gw.resultErr = errors.New("execution reverted")

	session.pollOnce(context.Background())
	clock.Advance(15 * time.Second)
	session.pollOnce(context.Background())

	state := store.State()
	if !state.SyncLost {
		t.Error("unresolvable inactive game should be flagged sync-lost")
	}
	if state.GameOver {
		t.Error("sync loss is not a settlement")
	}
	if bc.syncLost != 1 {
		t.Errorf("syncLost broadcasts = %d, want 1", bc.syncLost)
	}
}

func TestHandleEventSettlesTrackedGame(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(7), snapshot: startedSnapshot(7)}
	bc := &recordBroadcaster{}
	session, store, _ := newTestSession(t, gw, bc)
	session.pollOnce(context.Background())

	ended := models.GameEvent{
		Type:            models.EventBotGameEnded,
		Player:          testPlayer,
		GameID:          big.NewInt(7),
		PlayerWon:       true,
		Payout:          big.NewInt(3e18),
		FinalMultiplier: big.NewInt(300),
	}
	session.handleEvent(context.Background(), ended)

	state := store.State()
	if !state.GameOver || state.Result == nil {
		t.Fatal("ended event should settle the tracked game")
	}
	if bc.gameOverCount() != 1 {
		t.Errorf("gameOver broadcasts = %d, want 1", bc.gameOverCount())
	}

	// Duplicate delivery is a no-op.
	session.handleEvent(context.Background(), ended)
	if bc.gameOverCount() != 1 {
		t.Errorf("gameOver broadcasts after duplicate = %d, want 1", bc.gameOverCount())
	}
}

func TestHandleEventIgnoresOtherPlayersAndStaleGames(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(7), snapshot: startedSnapshot(7)}
	bc := &recordBroadcaster{}
	session, store, _ := newTestSession(t, gw, bc)
	session.pollOnce(context.Background())

	session.handleEvent(context.Background(), models.GameEvent{
		Type:      models.EventBotGameEnded,
		Player:    otherAddr,
		GameID:    big.NewInt(7),
		PlayerWon: true,
	})
	if store.State().GameOver {
		t.Error("another player's event must not settle our game")
	}

	session.handleEvent(context.Background(), models.GameEvent{
		Type:      models.EventBotGameEnded,
		Player:    testPlayer,
		GameID:    big.NewInt(2),
		PlayerWon: true,
	})
	if store.State().GameOver {
		t.Error("an event for a stale game id must not settle the tracked game")
	}
	if bc.gameOverCount() != 0 {
		t.Errorf("gameOver broadcasts = %d, want 0", bc.gameOverCount())
	}
}

func TestHandleEventPlayerEjectedSynthesizesWin(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(9), snapshot: startedSnapshot(9)}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})
	session.pollOnce(context.Background())

	session.handleEvent(context.Background(), models.GameEvent{
		Type:   models.EventPlayerEjected,
		Player: testPlayer,
	})

	state := store.State()
	if !state.GameOver {
		t.Fatal("eject event should settle the tracked game")
	}
	if state.Result == nil || !state.Result.PlayerWon {
		t.Error("ejecting in time is a win")
	}
	if state.Result.GameID.Int64() != 9 {
		t.Errorf("result game id = %v, want 9", state.Result.GameID)
	}
}

func TestEjectRequiresTrackedGame(t *testing.T) {
	gw := &fakeGateway{}
	session, _, _ := newTestSession(t, gw, NopBroadcaster{})

	if err := session.Eject(context.Background()); !errors.Is(err, ErrNoActiveGame) {
		t.Errorf("err = %v, want ErrNoActiveGame", err)
	}
	if gw.ejectCalls != 0 {
		t.Error("no transaction should be sent without a tracked game")
	}
}

func TestPlayAgainClearsConsumedResult(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(5), snapshot: startedSnapshot(5)}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})
	session.pollOnce(context.Background())
	session.handleEvent(context.Background(), models.GameEvent{
		Type:   models.EventBotGameEnded,
		Player: testPlayer,
		GameID: big.NewInt(5),
	})

	// The chain already reports the next game.
	gw.activeID = big.NewInt(6)
	gw.snapshot = startedSnapshot(6)
	session.PlayAgain(context.Background())

	state := store.State()
	if state.GameOver || state.Result != nil {
		t.Error("consumed result should be cleared")
	}
	if state.CurrentGameID == nil || state.CurrentGameID.Int64() != 6 {
		t.Errorf("CurrentGameID = %v, want 6", state.CurrentGameID)
	}
}

func TestForceResetClearsLocalStateEvenWhenChainResetFails(t *testing.T) {
	gw := &fakeGateway{activeID: big.NewInt(5), snapshot: startedSnapshot(5)}
	session, store, _ := newTestSession(t, gw, NopBroadcaster{})
	session.pollOnce(context.Background())
	store.MarkSyncLost()

	if err := session.ForceReset(context.Background()); err != nil {
		t.Fatalf("ForceReset failed: %v", err)
	}
	if gw.resetCalls != 1 {
		t.Errorf("resetCalls = %d, want 1", gw.resetCalls)
	}

	state := store.State()
	if state.CurrentGameID != nil || state.SyncLost {
		t.Error("local state should be fully cleared")
	}
}
