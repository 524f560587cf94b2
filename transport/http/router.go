package http

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/govdash/service"
)

// SetupRouter sets up the Gin router of the local dashboard API
func SetupRouter(ctrl *service.AuthController, watchlist *service.WatchlistService, subscriber message.Subscriber, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger))

	handlers := NewDashboardHandlers(ctrl, watchlist, logger)
	stream := NewEventStream(subscriber, ctrl, logger)

	router.GET("/healthz", handlers.Health)
	router.GET("/session", handlers.Session)
	router.GET("/events", stream.Serve)
	router.POST("/wallet/connect", handlers.Connect)

	auth := router.Group("/auth")
	{
		auth.POST("/start", handlers.StartAuthentication)
		auth.POST("/disconnect", handlers.Disconnect)
	}

	modals := router.Group("/modals")
	{
		modals.POST("/success/close", handlers.CloseSuccessModal)
		modals.POST("/discovery/close", handlers.CloseDiscovery)
	}
	router.GET("/discovery", handlers.Discovery)

	watch := router.Group("/watchlist")
	{
		watch.GET("", handlers.Watchlist)
		watch.POST("", handlers.AddToWatchlist)
		watch.DELETE("/:realm", handlers.RemoveFromWatchlist)
	}

	return router
}
