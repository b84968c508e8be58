package services

import (
	"context"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"cosmic-chicken-backend/internal/models"
)

// displayTick is the interpolation cadence: 10 display updates per second.
const displayTick = 100 * time.Millisecond

// DefaultGrowthDivisor is the fixed-divisor growth policy: the multiplier
// gains 1.00x every 5 seconds of elapsed game time.
const DefaultGrowthDivisor = 5.0

// DisplayParams are the contract constants the interpolation runs on.
// MaxMultiplier uses the contract's x100 scaling.
type DisplayParams struct {
	GrowthDivisor float64
	MaxMultiplier int64
	RoundDuration time.Duration
}

func (p DisplayParams) maxMultiplier() float64 {
	if p.MaxMultiplier <= 0 {
		return math.Inf(1)
	}
	return float64(p.MaxMultiplier) / 100
}

// ComputeDisplay derives the display estimate for a started game from
// wall-clock time alone. done reports that the multiplier cap or the time
// floor has been reached and the loop must stop rescheduling. The result is
// monotonically non-decreasing in now for a fixed snapshot.
func ComputeDisplay(snap *models.GameSnapshot, now time.Time, p DisplayParams) (models.DisplayState, bool) {
	if !snap.HasStarted() {
		fee := (*big.Int)(nil)
		if snap != nil {
			fee = snap.EntryFee
		}
		return DefaultDisplay(p, fee), true
	}

	elapsed := now.Sub(snap.StartTime).Seconds()
	if elapsed < 0 {
		// startTime reported slightly in the future (clock skew)
		elapsed = 0
	}

	divisor := p.GrowthDivisor
	if divisor <= 0 {
		divisor = DefaultGrowthDivisor
	}

	max := p.maxMultiplier()
	multiplier := 1 + elapsed/divisor
	capped := false
	if multiplier >= max {
		multiplier = max
		capped = true
	}

	remaining := p.RoundDuration.Seconds() - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return models.DisplayState{
		Multiplier:    multiplier,
		TimeRemaining: remaining,
		Payout:        models.ScaledPayout(snap.EntryFee, multiplier).String(),
		Active:        true,
	}, capped || remaining <= 0
}

// DefaultDisplay is what the UI shows when no game is running: multiplier
// 1.00, the full round duration, and the entry fee as the base payout.
func DefaultDisplay(p DisplayParams, entryFee *big.Int) models.DisplayState {
	payout := "0"
	if entryFee != nil {
		payout = entryFee.String()
	}
	return models.DisplayState{
		Multiplier:    1.0,
		TimeRemaining: p.RoundDuration.Seconds(),
		Payout:        payout,
	}
}

// Interpolator owns the per-game display loop. It is started when a game
// becomes animatable and stopped explicitly on settlement, teardown or reset;
// the loop also terminates on its own the instant the cap or the time floor
// is hit.
type Interpolator struct {
	clock       clockwork.Clock
	store       *GameStore
	broadcaster Broadcaster

	mu         sync.Mutex
	params     DisplayParams
	cancel     context.CancelFunc
	defaultFee *big.Int
}

func NewInterpolator(store *GameStore, broadcaster Broadcaster, clock clockwork.Clock) *Interpolator {
	return &Interpolator{
		clock:       clock,
		store:       store,
		broadcaster: broadcaster,
	}
}

// SetParams installs the contract constants once bootstrap has read them.
func (ip *Interpolator) SetParams(params DisplayParams) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.params = params
}

func (ip *Interpolator) getParams() DisplayParams {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.params
}

// SetDefaultFee sets the entry fee shown as the base payout while idle.
func (ip *Interpolator) SetDefaultFee(fee *big.Int) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if fee != nil {
		ip.defaultFee = new(big.Int).Set(fee)
	}
}

// Start begins animating the store's current snapshot, cancelling any
// previous loop first so a superseded game can never keep ticking.
func (ip *Interpolator) Start(ctx context.Context) {
	ip.mu.Lock()
	if ip.cancel != nil {
		ip.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	ip.cancel = cancel
	ip.mu.Unlock()

	go ip.loop(loopCtx)
}

// Stop cancels the running loop and resets the display to defaults.
func (ip *Interpolator) Stop() {
	ip.mu.Lock()
	if ip.cancel != nil {
		ip.cancel()
		ip.cancel = nil
	}
	fee := ip.defaultFee
	params := ip.params
	ip.mu.Unlock()

	ip.broadcaster.BroadcastDisplayUpdate(DefaultDisplay(params, fee))
}

func (ip *Interpolator) loop(ctx context.Context) {
	ticker := ip.clock.NewTicker(displayTick)
	defer ticker.Stop()

	for {
		snap := ip.store.Snapshot()
		if snap == nil || !snap.HasStarted() {
			return
		}

		display, done := ComputeDisplay(snap, ip.clock.Now(), ip.getParams())
		ip.broadcaster.BroadcastDisplayUpdate(display)
		if done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
