package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classcodego/internal/config"
	"classcodego/internal/crdt"
	"classcodego/internal/database/db_client"
	"classcodego/internal/http/http_server"
	"classcodego/internal/redis/redis_client"
	"classcodego/internal/services/room"
	"classcodego/internal/syncdoc"
	"classcodego/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client
	var roomService room.IRoomService

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (cross-instance event fan-out)
	redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client (creates the room tables when missing)
	pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Room store + CRDT document registry
	roomService = room.NewRoomService(pgDb)
	docs := crdt.NewRegistry(crdt.NewLogEngine(), cfg.DocCompactAfter)

	// 6. Background: document snapshot synchroniser
	syncdoc.Run(ctx, docs, roomService, time.Duration(cfg.DocSyncIntervalSec)*time.Second)

	// 7. WebSockets hub + session coordinator
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, roomService, docs)

	// 8. HTTP + WS server; dispose on SIGINT/SIGTERM
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, roomService, redisClient, pgDb)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
