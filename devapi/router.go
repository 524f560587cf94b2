package devapi

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig tunes the development API router
type RouterConfig struct {
	ChallengesPerMinute int
	ChallengeBurst      int
	Middleware          []gin.HandlerFunc
}

// NewRouter sets up the Gin router for the development API
func NewRouter(service *AuthService, cfg RouterConfig) *gin.Engine {
	if cfg.ChallengesPerMinute <= 0 {
		cfg.ChallengesPerMinute = 30
	}
	if cfg.ChallengeBurst <= 0 {
		cfg.ChallengeBurst = 5
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.Middleware...)

	handlers := NewHandlers(service)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", RateLimit(cfg.ChallengesPerMinute, cfg.ChallengeBurst), handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
	}

	user := router.Group("/user")
	user.Use(AuthMiddleware(service))
	{
		user.GET("/daos", handlers.Daos)
		user.GET("/watchlist", handlers.Watchlist)
		user.POST("/watchlist", handlers.AddToWatchlist)
		user.DELETE("/watchlist/:realm", handlers.RemoveFromWatchlist)
	}

	return router
}
