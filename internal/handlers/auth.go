package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"cosmic-chicken-backend/internal/models"
	"cosmic-chicken-backend/internal/services"
)

type AuthHandler struct {
	jwtService  *services.JWTService
	apiPassword string
	address     string
}

func NewAuthHandler(jwtService *services.JWTService, apiPassword, playerAddress string) *AuthHandler {
	return &AuthHandler{
		jwtService:  jwtService,
		apiPassword: apiPassword,
		address:     playerAddress,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.apiPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := h.jwtService.GenerateToken(h.address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"address": h.address,
	})
}
