package devapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
)

const ctxAddress = "walletAddress"

// Handlers contains HTTP handlers for the development API
type Handlers struct {
	service *AuthService
}

// NewHandlers creates new handlers
func NewHandlers(service *AuthService) *Handlers {
	return &Handlers{service: service}
}

// Challenge handles the challenge request
func (h *Handlers) Challenge(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.service.CreateChallenge(req.WalletAddress)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": token})
}

// Verify handles the signed challenge
func (h *Handlers) Verify(c *gin.Context) {
	var req ports.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.WalletAddress == "" || req.Challenge == "" || req.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Verification failed"

		switch {
		case errors.Is(err, core.ErrInvalidChallenge):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid challenge"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusBadRequest
			errorMsg = "Challenge expired"
		case errors.Is(err, core.ErrChallengeUsed):
			statusCode = http.StatusConflict
			errorMsg = "Challenge already used"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Daos lists the DAOs of the authenticated wallet
func (h *Handlers) Daos(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.AssociatedDaos(c.GetString(ctxAddress)))
}

// Watchlist lists the watchlist of the authenticated wallet
func (h *Handlers) Watchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": h.service.Watchlist(c.GetString(ctxAddress))})
}

// AddToWatchlist adds a realm to the watchlist
func (h *Handlers) AddToWatchlist(c *gin.Context) {
	var req struct {
		Realm string `json:"realm" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.service.AddToWatchlist(c.GetString(ctxAddress), req.Realm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFromWatchlist removes a realm from the watchlist
func (h *Handlers) RemoveFromWatchlist(c *gin.Context) {
	if !h.service.RemoveFromWatchlist(c.GetString(ctxAddress), c.Param("realm")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Realm not in watchlist"})
		return
	}
	c.Status(http.StatusNoContent)
}
