package http_server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"classcodego/internal/http/roomhandler"
	"classcodego/internal/services/room"
	"classcodego/internal/ws"
)

type httpServer struct {
	listenPort  uint16
	srv         http.Server
	ln          net.Listener
	roomService room.IRoomService
	wsSrv       *ws.WsServer
	rdc         *redis.Client
	db          *sql.DB
	ctx         context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer,
	roomService room.IRoomService, rdc *redis.Client, db *sql.DB) *httpServer {
	return &httpServer{
		listenPort:  listenPort,
		wsSrv:       wsSrv,
		roomService: roomService,
		rdc:         rdc,
		db:          db,
		ctx:         ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// liveness
	routerEngine.GET("/healthz", h.healthz)

	// REST API
	rh := roomhandler.New(h.roomService)
	rh.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

func (h *httpServer) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"redis": "ok", "postgres": "ok"}
	if err := h.rdc.Ping(ctx).Err(); err != nil {
		status = http.StatusServiceUnavailable
		body["redis"] = err.Error()
	}
	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["postgres"] = err.Error()
	}
	c.JSON(status, body)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	// Create a context that times-out after 10 s.
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	// Ask the server to shut down.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	// If the context's deadline expired, log it for observability.
	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
