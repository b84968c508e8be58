package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EventType string

const (
	EventBotGameStarted EventType = "BotGameStarted"
	EventBotGameEnded   EventType = "BotGameEnded"
	EventPlayerEjected  EventType = "PlayerEjected"
	EventRoundFinished  EventType = "RoundFinished"
)

// GameEvent is a decoded contract log. Only the fields relevant to the
// event's Type are populated.
type GameEvent struct {
	Type   EventType
	Player common.Address
	GameID *big.Int

	// BotGameEnded
	PlayerWon       bool
	Payout          *big.Int
	FinalMultiplier *big.Int

	// RoundFinished
	Winner      common.Address
	PrizeAmount *big.Int
}
