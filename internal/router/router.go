package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/questlog/api/handler"
)

type Handlers struct {
	User        *apiHandler.UserHandler
	Leaderboard *apiHandler.LeaderboardHandler
	Health      *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	if authMiddleware == nil {
		authMiddleware = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public routes
	r.GET("/api/leaderboard", handlers.Leaderboard.List)

	// Protected routes
	r.POST("/api/users", authMiddleware(handlers.User.Create))
	r.GET("/api/users/{id}", authMiddleware(handlers.User.Get))
	r.PUT("/api/users/{id}", authMiddleware(handlers.User.Update))

	return r
}
