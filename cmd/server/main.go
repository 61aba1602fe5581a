package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/config"
	"github.com/velora/nightpulse/internal/database"
	"github.com/velora/nightpulse/internal/handler"
	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/realtime"
	"github.com/velora/nightpulse/internal/repository"
	"github.com/velora/nightpulse/internal/router"
	"github.com/velora/nightpulse/internal/seed"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables the HTTP cache and rate
	// limiter and drops the snapshot store to its in-process layer.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, running with in-process snapshots only")
	}
	snapshots := localcache.New(rdb, 24*time.Hour)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	stores := syncpkg.Stores{
		Identities: users,
		Profiles:   repository.NewProfileRepo(db),
		Places:     repository.NewPlaceRepo(db),
		Feed:       repository.NewFeedRepo(db),
		Chats:      repository.NewChatRepo(db),
		Friends:    repository.NewFriendRequestRepo(db),
		CheckIns:   repository.NewCheckInRepo(db),
		Logs:       repository.NewBusinessLogRepo(db),
	}

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		seed.EnsurePlaces(ctx, repository.NewPlaceRepo(db))
		cancel()
	}

	retry := syncpkg.RetryPolicy{
		Attempts: cfg.ProfileRetryAttempts,
		Delay:    cfg.ProfileRetryDelay,
	}
	publisher := realtime.NewPublisher()
	defer publisher.Close()
	hub := realtime.NewHub()
	gateway := syncpkg.New(stores, snapshots, publisher, hub, retry, cfg.BcryptCost)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rdb, router.Handlers{
		Auth:   handler.NewAuthHandler(cfg, gateway, users, tokens),
		Venue:  handler.NewVenueHandler(gateway),
		Feed:   handler.NewFeedHandler(gateway),
		Chat:   handler.NewChatHandler(gateway),
		Friend: handler.NewFriendHandler(gateway),
		Owner:  handler.NewOwnerHandler(gateway),
		Stream: handler.NewStreamHandler(hub),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
