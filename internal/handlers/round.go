package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cosmic-chicken-backend/internal/chain"
	"cosmic-chicken-backend/internal/models"
	"cosmic-chicken-backend/internal/services"
)

type RoundHandler struct {
	rounds *services.RoundWatcher
}

func NewRoundHandler(rounds *services.RoundWatcher) *RoundHandler {
	return &RoundHandler{rounds: rounds}
}

func (h *RoundHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   roundJSON(h.rounds.State()),
		"config": gin.H{
			"entry_fee": h.rounds.EntryFee().String(),
		},
	})
}

func (h *RoundHandler) Join(c *gin.Context) {
	if err := h.rounds.Join(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to join round"
		if errors.Is(err, chain.ErrTxReverted) {
			status = http.StatusBadRequest
			msg = "Join reverted. You may already be in the round."
		}
		c.JSON(status, gin.H{"error": msg, "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "round": roundJSON(h.rounds.State())})
}

func (h *RoundHandler) Eject(c *gin.Context) {
	if err := h.rounds.Eject(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to eject from round"
		if errors.Is(err, chain.ErrTxReverted) {
			status = http.StatusBadRequest
			msg = "Eject reverted. You may not be in the round."
		}
		c.JSON(status, gin.H{"error": msg, "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "round": roundJSON(h.rounds.State())})
}

func (h *RoundHandler) Withdraw(c *gin.Context) {
	if err := h.rounds.Withdraw(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to withdraw winnings"
		if errors.Is(err, chain.ErrTxReverted) {
			status = http.StatusBadRequest
			msg = "Withdraw reverted. Nothing to claim."
		}
		c.JSON(status, gin.H{"error": msg, "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func roundJSON(state models.RoundState) gin.H {
	out := gin.H{
		"player_count": state.PlayerCount,
		"is_finished":  state.IsFinished,
		"in_round":     state.InRound,
		"time_left":    state.TimeLeft,
		"last_player":  state.LastPlayer.Hex(),
	}
	if state.PrizePool != nil {
		out["prize_pool"] = state.PrizePool.String()
		out["prize_pool_formatted"] = models.FormatToken(state.PrizePool)
	}
	if !state.EndTime.IsZero() {
		out["end_time"] = state.EndTime.Unix()
	}
	return out
}
