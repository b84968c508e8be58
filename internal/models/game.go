package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GameSnapshot is the authoritative on-chain view of one bot game, as
// returned by getBotGameInfo. StartTime is immutable once set; IsActive
// implies StartTime is non-zero.
type GameSnapshot struct {
	GameID    *big.Int
	Player    common.Address
	StartTime time.Time
	EntryFee  *big.Int
	IsActive  bool
}

// HasStarted reports whether the snapshot describes a running game that the
// interpolation loop can animate.
func (s *GameSnapshot) HasStarted() bool {
	return s != nil && s.IsActive && !s.StartTime.IsZero()
}

// GameResult is the terminal outcome of a bot game as settled by the
// contract. FinalMultiplier uses the contract's integer scaling (x100,
// so 500 means 5.00x).
type GameResult struct {
	GameID          *big.Int
	PlayerWon       bool
	Payout          *big.Int
	FinalMultiplier *big.Int
}

// DisplayState is the client-facing estimate derived from a GameSnapshot and
// wall-clock time. It is recomputed on every interpolation tick and never
// persisted; settlement values always come from GameResult instead.
type DisplayState struct {
	Multiplier    float64 `json:"multiplier"`
	TimeRemaining float64 `json:"time_remaining"`
	Payout        string  `json:"payout"` // wei, decimal string
	Active        bool    `json:"active"`
}

// BotState is the store's externally visible view of the player's bot game.
type BotState struct {
	CurrentGameID *big.Int
	Snapshot      *GameSnapshot
	Result        *GameResult
	GameOver      bool
	SyncLost      bool
}

// RoundInfo is the snapshot of the multiplayer "last player wins" round from
// getCurrentRoundInfo.
type RoundInfo struct {
	PrizePool   *big.Int
	EndTime     time.Time
	LastPlayer  common.Address
	PlayerCount int64
	IsFinished  bool
}

// RoundState adds the player-relative fields the watcher derives on top of
// the raw round snapshot.
type RoundState struct {
	RoundInfo
	InRound  bool
	TimeLeft float64
}

// ResultRecord is the serialized form of a finished game kept in the Redis
// history feed.
type ResultRecord struct {
	GameID          string `json:"game_id"`
	PlayerWon       bool   `json:"player_won"`
	Payout          string `json:"payout"`
	FinalMultiplier int64  `json:"final_multiplier"`
	EndedAt         int64  `json:"ended_at"`
}
