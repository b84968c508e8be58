package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cosmic-chicken-backend/internal/models"
)

func parsedABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		t.Fatalf("contract ABI does not parse: %v", err)
	}
	return parsed
}

func testGateway(t *testing.T) *Gateway {
	return &Gateway{abi: parsedABI(t)}
}

func TestContractABISurface(t *testing.T) {
	parsed := parsedABI(t)

	for _, method := range []string{
		"entryFee", "BOT_MAX_MULTIPLIER", "BOT_GAME_MAX_DURATION",
		"playerActiveBotGame", "getBotGameInfo", "getBotGameResult",
		"getCurrentRoundInfo", "isPlayerInCurrentRound", "owner",
		"startBotGame", "ejectFromBotGame", "resetBotGame",
		"joinRound", "ejectFromRound", "withdrawWinnings",
	} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Errorf("method %s missing from ABI", method)
		}
	}

	for _, event := range []string{"BotGameStarted", "BotGameEnded", "PlayerEjected", "RoundFinished"} {
		ev, ok := parsed.Events[event]
		if !ok {
			t.Errorf("event %s missing from ABI", event)
			continue
		}
		if (ev.ID == common.Hash{}) {
			t.Errorf("event %s has a zero topic id", event)
		}
	}

	if got := len(parsed.Methods["getBotGameInfo"].Outputs); got != 5 {
		t.Errorf("getBotGameInfo returns %d values, want 5", got)
	}
	if parsed.Methods["startBotGame"].StateMutability != "payable" {
		t.Error("startBotGame should be payable")
	}
}

func packEventData(t *testing.T, a abi.ABI, event string, vals ...interface{}) []byte {
	t.Helper()
	data, err := a.Events[event].Inputs.NonIndexed().Pack(vals...)
	if err != nil {
		t.Fatalf("failed to pack %s data: %v", event, err)
	}
	return data
}

func TestDecodeLogBotGameStarted(t *testing.T) {
	g := testGateway(t)
	player := common.HexToAddress("0xabc0000000000000000000000000000000000001")

	ev, err := g.decodeLog(types.Log{
		Topics: []common.Hash{
			g.abi.Events["BotGameStarted"].ID,
			common.BytesToHash(player.Bytes()),
		},
		Data: packEventData(t, g.abi, "BotGameStarted", big.NewInt(42)),
	})
	if err != nil {
		t.Fatalf("decodeLog failed: %v", err)
	}

	if ev.Type != models.EventBotGameStarted {
		t.Errorf("Type = %s, want %s", ev.Type, models.EventBotGameStarted)
	}
	if ev.Player != player {
		t.Errorf("Player = %s, want %s", ev.Player.Hex(), player.Hex())
	}
	if ev.GameID.Int64() != 42 {
		t.Errorf("GameID = %v, want 42", ev.GameID)
	}
}

func TestDecodeLogBotGameEnded(t *testing.T) {
	g := testGateway(t)
	player := common.HexToAddress("0xabc0000000000000000000000000000000000001")

	ev, err := g.decodeLog(types.Log{
		Topics: []common.Hash{
			g.abi.Events["BotGameEnded"].ID,
			common.BytesToHash(player.Bytes()),
		},
		Data: packEventData(t, g.abi, "BotGameEnded",
			big.NewInt(42), true, big.NewInt(3e18), big.NewInt(300)),
	})
	if err != nil {
		t.Fatalf("decodeLog failed: %v", err)
	}

	if ev.Type != models.EventBotGameEnded {
		t.Errorf("Type = %s, want %s", ev.Type, models.EventBotGameEnded)
	}
	if !ev.PlayerWon {
		t.Error("PlayerWon should be true")
	}
	if ev.Payout.Cmp(big.NewInt(3e18)) != 0 {
		t.Errorf("Payout = %v, want 3e18", ev.Payout)
	}
	if ev.FinalMultiplier.Int64() != 300 {
		t.Errorf("FinalMultiplier = %v, want 300", ev.FinalMultiplier)
	}
}

func TestDecodeLogPlayerEjected(t *testing.T) {
	g := testGateway(t)
	player := common.HexToAddress("0xabc0000000000000000000000000000000000002")

	ev, err := g.decodeLog(types.Log{
		Topics: []common.Hash{
			g.abi.Events["PlayerEjected"].ID,
			common.BytesToHash(player.Bytes()),
		},
	})
	if err != nil {
		t.Fatalf("decodeLog failed: %v", err)
	}

	if ev.Type != models.EventPlayerEjected {
		t.Errorf("Type = %s, want %s", ev.Type, models.EventPlayerEjected)
	}
	if ev.Player != player {
		t.Errorf("Player = %s, want %s", ev.Player.Hex(), player.Hex())
	}
}

func TestDecodeLogRoundFinished(t *testing.T) {
	g := testGateway(t)
	winner := common.HexToAddress("0xabc0000000000000000000000000000000000003")

	ev, err := g.decodeLog(types.Log{
		Topics: []common.Hash{
			g.abi.Events["RoundFinished"].ID,
			common.BytesToHash(winner.Bytes()),
		},
		Data: packEventData(t, g.abi, "RoundFinished", big.NewInt(7e18)),
	})
	if err != nil {
		t.Fatalf("decodeLog failed: %v", err)
	}

	if ev.Type != models.EventRoundFinished {
		t.Errorf("Type = %s, want %s", ev.Type, models.EventRoundFinished)
	}
	if ev.Winner != winner {
		t.Errorf("Winner = %s, want %s", ev.Winner.Hex(), winner.Hex())
	}
	if ev.PrizeAmount.Cmp(big.NewInt(7e18)) != 0 {
		t.Errorf("PrizeAmount = %v, want 7e18", ev.PrizeAmount)
	}
}

func TestDecodeLogUnknownTopic(t *testing.T) {
	g := testGateway(t)

	if _, err := g.decodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}); err == nil {
		t.Error("unknown topic should be rejected")
	}
	if _, err := g.decodeLog(types.Log{}); err == nil {
		t.Error("log without topics should be rejected")
	}
}
