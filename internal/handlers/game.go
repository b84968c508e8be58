package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cosmic-chicken-backend/internal/chain"
	"cosmic-chicken-backend/internal/models"
	"cosmic-chicken-backend/internal/services"
)

type BotHandler struct {
	session *services.GameSession
	history *services.HistoryService
}

func NewBotHandler(session *services.GameSession, history *services.HistoryService) *BotHandler {
	return &BotHandler{
		session: session,
		history: history,
	}
}

func (h *BotHandler) StartGame(c *gin.Context) {
	err := h.session.StartGame(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"state":   botStateJSON(h.session.State(), h.session.Display()),
		})
	case errors.Is(err, services.ErrAlreadyInGame):
		c.JSON(http.StatusConflict, gin.H{"error": "Already in an active game"})
	case errors.Is(err, chain.ErrTxReverted):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Transaction failed. You may already be in a game.",
			"details": err.Error(),
		})
	case errors.Is(err, services.ErrSyncTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "Could not sync with the new game. Please refresh.",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to start game",
			"details": err.Error(),
		})
	}
}

func (h *BotHandler) Eject(c *gin.Context) {
	err := h.session.Eject(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, services.ErrNoActiveGame):
		c.JSON(http.StatusConflict, gin.H{"error": "No active game to eject from"})
	case errors.Is(err, chain.ErrTxReverted):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Eject reverted. The game may already be over.",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to eject",
			"details": err.Error(),
		})
	}
}

func (h *BotHandler) PlayAgain(c *gin.Context) {
	h.session.PlayAgain(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   botStateJSON(h.session.State(), h.session.Display()),
	})
}

func (h *BotHandler) ForceReset(c *gin.Context) {
	if err := h.session.ForceReset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reset",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *BotHandler) GetState(c *gin.Context) {
	params := h.session.Params()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   botStateJSON(h.session.State(), h.session.Display()),
		"config": gin.H{
			"entry_fee":      h.session.EntryFee().String(),
			"max_multiplier": params.MaxMultiplier,
			"round_duration": params.RoundDuration.Seconds(),
		},
	})
}

func (h *BotHandler) GetWallet(c *gin.Context) {
	balance, err := h.session.WalletBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read balance",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"wallet": gin.H{
			"address":   h.session.Player().Hex(),
			"balance":   balance.String(),
			"formatted": models.FormatToken(balance),
		},
	})
}

func (h *BotHandler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "results": []gin.H{}, "count": 0})
		return
	}

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	records, err := h.history.GetHistory(h.session.Player(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch history",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, rec := range records {
		response = append(response, gin.H{
			"game_id":          rec.GameID,
			"player_won":       rec.PlayerWon,
			"payout":           rec.Payout,
			"final_multiplier": rec.FinalMultiplier,
			"ended_at":         rec.EndedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": response,
		"count":   len(response),
	})
}

func botStateJSON(state models.BotState, display models.DisplayState) gin.H {
	out := gin.H{
		"game_over": state.GameOver,
		"sync_lost": state.SyncLost,
		"display":   display,
	}
	if state.CurrentGameID != nil {
		out["current_game_id"] = state.CurrentGameID.String()
	}
	if state.Snapshot != nil {
		snap := state.Snapshot
		game := gin.H{
			"player":    snap.Player.Hex(),
			"is_active": snap.IsActive,
		}
		if snap.GameID != nil {
			game["game_id"] = snap.GameID.String()
		}
		if snap.EntryFee != nil {
			game["entry_fee"] = snap.EntryFee.String()
		}
		if !snap.StartTime.IsZero() {
			game["start_time"] = snap.StartTime.Unix()
		}
		out["game"] = game
	}
	if state.Result != nil {
		out["result"] = resultJSON(*state.Result)
	}
	return out
}

func resultJSON(res models.GameResult) gin.H {
	out := gin.H{
		"player_won": res.PlayerWon,
	}
	if res.GameID != nil {
		out["game_id"] = res.GameID.String()
	}
	if res.Payout != nil {
		out["payout"] = res.Payout.String()
		out["payout_formatted"] = models.FormatToken(res.Payout)
	}
	if res.FinalMultiplier != nil {
		out["final_multiplier"] = res.FinalMultiplier.Int64()
	}
	return out
}
