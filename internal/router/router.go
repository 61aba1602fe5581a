package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/velora/nightpulse/internal/config"
	"github.com/velora/nightpulse/internal/handler"
	"github.com/velora/nightpulse/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth   *handler.AuthHandler
	Venue  *handler.VenueHandler
	Feed   *handler.FeedHandler
	Chat   *handler.ChatHandler
	Friend *handler.FriendHandler
	Owner  *handler.OwnerHandler
	Stream *handler.StreamHandler
}

// Register wires all routes onto the Echo instance.
//
// Layout:
//
//	/healthz                       liveness probe
//	/v1/auth/*                     register/login/refresh/logout (no JWT)
//	/v1/venues, /v1/feed           public browse, cached + rate limited
//	/v1/*                          session endpoints (JWT, USER or OWNER)
//	/v1/owner/*                    dashboard endpoints (JWT, OWNER only)
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.GET("/healthz", handler.Health)

	rate := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Session endpoints. Logout revokes by refresh token, so it needs
	// no JWT.
	authGroup := e.Group("/v1/auth", rate)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/refresh-access", h.Auth.RefreshAccess)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.POST("/logout-all", h.Auth.LogoutAll)

	// Public browse surface. Read-only, safe to cache.
	pub := e.Group("/v1", rate, cache)
	pub.GET("/venues", h.Venue.List)
	pub.GET("/venues/:id", h.Venue.Get)
	pub.GET("/feed", h.Feed.List)

	// Everything below needs a valid access token.
	auth := e.Group("/v1", rate)
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.RequireRole("USER", "OWNER"))

	auth.GET("/me", h.Auth.Me)
	auth.PATCH("/me", h.Auth.UpdateMe)

	auth.GET("/stream", h.Stream.Stream)

	auth.POST("/checkins", h.Feed.CheckIn)

	auth.POST("/venues/:id/calls", h.Venue.RaiseCall)
	auth.DELETE("/venues/:id/calls/:call_id", h.Venue.DeleteCall)

	auth.GET("/chats", h.Chat.List)
	auth.POST("/chats", h.Chat.Start)
	auth.GET("/chats/:chat_id/messages", h.Chat.Messages)
	auth.POST("/chats/:chat_id/messages", h.Chat.Send)
	auth.POST("/chats/:chat_id/read", h.Chat.MarkRead)

	auth.GET("/friend-requests", h.Friend.Pending)
	auth.POST("/friend-requests", h.Friend.Send)
	auth.POST("/friend-requests/:id/accept", h.Friend.Accept)

	// Dashboard. Ownership is additionally enforced per row in the
	// repositories.
	owner := e.Group("/v1/owner", rate)
	owner.Use(middleware.JWTAuth(cfg.JWTSecret))
	owner.Use(middleware.RequireRole("OWNER"))

	owner.PATCH("/venues/:id", h.Owner.PatchVenue)
	owner.POST("/venues/:id/calls/:call_id/transition", h.Owner.TransitionCall)
	owner.GET("/venues/:id/visits", h.Owner.VisitsByHour)
}
