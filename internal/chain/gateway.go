package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"cosmic-chicken-backend/internal/models"
)

// ErrTxReverted marks a transaction that was broadcast and mined but rejected
// by the contract. Callers use it to tell a revert apart from a submission
// failure.
var ErrTxReverted = errors.New("transaction reverted")

// Gateway is the single point of contact with the CosmicChicken contract:
// view calls, signed state-changing transactions (submitted and waited to
// settlement), and the contract log subscription.
type Gateway struct {
	client   *ethclient.Client
	wsClient *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	address  common.Address
	key      *ecdsa.PrivateKey
	player   common.Address
	chainID  *big.Int
}

// NewGateway dials the RPC endpoints and binds the contract. wsURL may be
// empty, in which case event subscriptions are unavailable and callers fall
// back to polling alone.
func NewGateway(ctx context.Context, rpcURL, wsURL, contractAddr, privateKeyHex string) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	var wsClient *ethclient.Client
	if wsURL != "" {
		wsClient, err = ethclient.DialContext(ctx, wsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to dial ws rpc: %w", err)
		}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	address := common.HexToAddress(contractAddr)

	return &Gateway{
		client:   client,
		wsClient: wsClient,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		abi:      parsed,
		address:  address,
		key:      key,
		player:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
	}, nil
}

// Player returns the address derived from the signing key.
func (g *Gateway) Player() common.Address {
	return g.player
}

func (g *Gateway) Close() {
	g.client.Close()
	if g.wsClient != nil {
		g.wsClient.Close()
	}
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	return out, nil
}

func (g *Gateway) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := g.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return v, nil
}

func (g *Gateway) EntryFee(ctx context.Context) (*big.Int, error) {
	return g.callUint(ctx, "entryFee")
}

// MaxMultiplier returns BOT_MAX_MULTIPLIER in the contract's x100 scaling
// (500 means 5.00x).
func (g *Gateway) MaxMultiplier(ctx context.Context) (int64, error) {
	v, err := g.callUint(ctx, "BOT_MAX_MULTIPLIER")
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

func (g *Gateway) GameDuration(ctx context.Context) (time.Duration, error) {
	v, err := g.callUint(ctx, "BOT_GAME_MAX_DURATION")
	if err != nil {
		return 0, err
	}
	return time.Duration(v.Int64()) * time.Second, nil
}

// ActiveBotGame returns the player's active game id, zero when none.
func (g *Gateway) ActiveBotGame(ctx context.Context, player common.Address) (*big.Int, error) {
	return g.callUint(ctx, "playerActiveBotGame", player)
}

func (g *Gateway) BotGameInfo(ctx context.Context, gameID *big.Int) (*models.GameSnapshot, error) {
	out, err := g.call(ctx, "getBotGameInfo", gameID)
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("getBotGameInfo returned %d values, want 5", len(out))
	}

	startSecs := out[2].(*big.Int).Int64()
	snap := &models.GameSnapshot{
		GameID:   out[0].(*big.Int),
		Player:   out[1].(common.Address),
		EntryFee: out[3].(*big.Int),
		IsActive: out[4].(bool),
	}
	if startSecs > 0 {
		snap.StartTime = time.Unix(startSecs, 0)
	}
	return snap, nil
}

func (g *Gateway) BotGameResult(ctx context.Context, gameID *big.Int) (*models.GameResult, error) {
	out, err := g.call(ctx, "getBotGameResult", gameID)
	if err != nil {
		return nil, err
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("getBotGameResult returned %d values, want 3", len(out))
	}
	return &models.GameResult{
		GameID:          new(big.Int).Set(gameID),
		PlayerWon:       out[0].(bool),
		Payout:          out[1].(*big.Int),
		FinalMultiplier: out[2].(*big.Int),
	}, nil
}

func (g *Gateway) CurrentRound(ctx context.Context) (*models.RoundInfo, error) {
	out, err := g.call(ctx, "getCurrentRoundInfo")
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("getCurrentRoundInfo returned %d values, want 5", len(out))
	}

	info := &models.RoundInfo{
		PrizePool:   out[0].(*big.Int),
		LastPlayer:  out[2].(common.Address),
		PlayerCount: out[3].(*big.Int).Int64(),
		IsFinished:  out[4].(bool),
	}
	if endSecs := out[1].(*big.Int).Int64(); endSecs > 0 {
		info.EndTime = time.Unix(endSecs, 0)
	}
	return info, nil
}

func (g *Gateway) IsPlayerInRound(ctx context.Context, player common.Address) (bool, error) {
	out, err := g.call(ctx, "isPlayerInCurrentRound", player)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	out, err := g.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// PlayerBalance returns the signing account's native token balance.
func (g *Gateway) PlayerBalance(ctx context.Context) (*big.Int, error) {
	return g.client.BalanceAt(ctx, g.player, nil)
}

// transact signs, submits and waits for settlement of a state-changing call.
// A mined-but-failed execution maps to ErrTxReverted.
func (g *Gateway) transact(ctx context.Context, method string, value *big.Int, args ...interface{}) error {
	opts, err := bind.NewKeyedTransactorWithChainID(g.key, g.chainID)
	if err != nil {
		return fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := g.contract.Transact(opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s submit failed: %w", method, err)
	}

	log.Printf("Submitted %s tx %s, waiting for receipt", method, tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return fmt.Errorf("%s receipt wait failed: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: %w", method, ErrTxReverted)
	}
	return nil
}

func (g *Gateway) StartBotGame(ctx context.Context, fee *big.Int) error {
	return g.transact(ctx, "startBotGame", fee)
}

func (g *Gateway) EjectFromBotGame(ctx context.Context) error {
	return g.transact(ctx, "ejectFromBotGame", nil)
}

func (g *Gateway) ResetBotGame(ctx context.Context, player common.Address) error {
	return g.transact(ctx, "resetBotGame", nil, player)
}

func (g *Gateway) JoinRound(ctx context.Context, fee *big.Int) error {
	return g.transact(ctx, "joinRound", fee)
}

func (g *Gateway) EjectFromRound(ctx context.Context) error {
	return g.transact(ctx, "ejectFromRound", nil)
}

func (g *Gateway) WithdrawWinnings(ctx context.Context) error {
	return g.transact(ctx, "withdrawWinnings", nil)
}

// SubscribeGameEvents streams decoded contract events into sink until ctx is
// cancelled or the subscription drops. The returned function tears the
// subscription down.
func (g *Gateway) SubscribeGameEvents(ctx context.Context, sink chan<- models.GameEvent) (func(), error) {
	if g.wsClient == nil {
		return nil, errors.New("no ws rpc endpoint configured")
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{g.address},
		Topics: [][]common.Hash{{
			g.abi.Events["BotGameStarted"].ID,
			g.abi.Events["BotGameEnded"].ID,
			g.abi.Events["PlayerEjected"].ID,
			g.abi.Events["RoundFinished"].ID,
		}},
	}

	logs := make(chan types.Log, 16)
	sub, err := g.wsClient.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to contract logs: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					log.Printf("Contract log subscription dropped: %v", err)
				}
				return
			case lg := <-logs:
				ev, err := g.decodeLog(lg)
				if err != nil {
					log.Printf("Failed to decode contract log: %v", err)
					continue
				}
				select {
				case sink <- *ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub.Unsubscribe, nil
}

func (g *Gateway) decodeLog(lg types.Log) (*models.GameEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, errors.New("log without topics")
	}

	switch lg.Topics[0] {
	case g.abi.Events["BotGameStarted"].ID:
		vals, err := g.abi.Unpack("BotGameStarted", lg.Data)
		if err != nil {
			return nil, err
		}
		return &models.GameEvent{
			Type:   models.EventBotGameStarted,
			Player: common.BytesToAddress(lg.Topics[1].Bytes()),
			GameID: vals[0].(*big.Int),
		}, nil

	case g.abi.Events["BotGameEnded"].ID:
		vals, err := g.abi.Unpack("BotGameEnded", lg.Data)
		if err != nil {
			return nil, err
		}
		return &models.GameEvent{
			Type:            models.EventBotGameEnded,
			Player:          common.BytesToAddress(lg.Topics[1].Bytes()),
			GameID:          vals[0].(*big.Int),
			PlayerWon:       vals[1].(bool),
			Payout:          vals[2].(*big.Int),
			FinalMultiplier: vals[3].(*big.Int),
		}, nil

	case g.abi.Events["PlayerEjected"].ID:
		return &models.GameEvent{
			Type:   models.EventPlayerEjected,
			Player: common.BytesToAddress(lg.Topics[1].Bytes()),
		}, nil

	case g.abi.Events["RoundFinished"].ID:
		vals, err := g.abi.Unpack("RoundFinished", lg.Data)
		if err != nil {
			return nil, err
		}
		return &models.GameEvent{
			Type:        models.EventRoundFinished,
			Winner:      common.BytesToAddress(lg.Topics[1].Bytes()),
			PrizeAmount: vals[0].(*big.Int),
		}, nil
	}

	return nil, fmt.Errorf("unknown event topic %s", lg.Topics[0].Hex())
}
