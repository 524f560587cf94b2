package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/govdash/adapters/authapi"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/service"
)

// DashboardHandlers exposes the auth controller and watchlist to a local front end
type DashboardHandlers struct {
	ctrl      *service.AuthController
	watchlist *service.WatchlistService
	logger    *slog.Logger
}

// NewDashboardHandlers creates new dashboard handlers
func NewDashboardHandlers(ctrl *service.AuthController, watchlist *service.WatchlistService, logger *slog.Logger) *DashboardHandlers {
	return &DashboardHandlers{ctrl: ctrl, watchlist: watchlist, logger: logger}
}

// Session returns the current controller snapshot
func (h *DashboardHandlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// Connect connects the wallet and restores a persisted session
func (h *DashboardHandlers) Connect(c *gin.Context) {
	if err := h.ctrl.Connect(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// StartAuthentication runs challenge, sign and verify. A request made while an
// attempt is in flight returns the current snapshot without starting another.
func (h *DashboardHandlers) StartAuthentication(c *gin.Context) {
	if err := h.ctrl.StartAuthentication(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// Disconnect tears down the session. The state is reset even when clearing the
// wallet or the stored token fails; those failures are still reported.
func (h *DashboardHandlers) Disconnect(c *gin.Context) {
	if err := h.ctrl.Disconnect(c.Request.Context()); err != nil {
		h.logger.Warn("disconnect finished with errors", "error", err)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// CloseSuccessModal dismisses the success modal
func (h *DashboardHandlers) CloseSuccessModal(c *gin.Context) {
	h.ctrl.CloseSuccessModal()
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// CloseDiscovery dismisses the discovery modal
func (h *DashboardHandlers) CloseDiscovery(c *gin.Context) {
	h.ctrl.CloseDiscovery()
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// Discovery returns the discovery modal content
func (h *DashboardHandlers) Discovery(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Discovery())
}

// Watchlist lists the tracked DAOs
func (h *DashboardHandlers) Watchlist(c *gin.Context) {
	entries, err := h.watchlist.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": entries})
}

// AddToWatchlist tracks a realm
func (h *DashboardHandlers) AddToWatchlist(c *gin.Context) {
	var req struct {
		Realm string `json:"realm" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.watchlist.Add(c.Request.Context(), req.Realm); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFromWatchlist stops tracking a realm
func (h *DashboardHandlers) RemoveFromWatchlist(c *gin.Context) {
	if err := h.watchlist.Remove(c.Request.Context(), c.Param("realm")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Health reports liveness
func (h *DashboardHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail maps controller and API errors to status codes. A 401 from the
// governance API means the token is gone, so the session is dropped too.
func (h *DashboardHandlers) fail(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	var apiErr *authapi.APIError

	switch {
	case errors.Is(err, core.ErrWalletNotConnected),
		errors.Is(err, core.ErrSignerUnavailable),
		errors.Is(err, core.ErrMissingAddress):
		statusCode = http.StatusPreconditionFailed
	case errors.Is(err, core.ErrSignatureRejected):
		statusCode = http.StatusForbidden
	case errors.Is(err, core.ErrSessionSuperseded):
		statusCode = http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		if dropErr := h.ctrl.HandleUnauthorized(context.WithoutCancel(c.Request.Context())); dropErr != nil {
			h.logger.Warn("failed to drop session", "error", dropErr)
		}
	case errors.Is(err, core.ErrChallengeFailed),
		errors.Is(err, core.ErrVerifyFailed),
		errors.As(err, &apiErr):
		statusCode = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
	}

	c.JSON(statusCode, gin.H{"error": err.Error(), "session": h.ctrl.Snapshot()})
}
