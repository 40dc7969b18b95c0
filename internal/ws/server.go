package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classcodego/internal/crdt"
	roomsvc "classcodego/internal/services/room"
	"classcodego/internal/session"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 50 * time.Second // must be < pongWait
	maxFrameSize    = 1 << 20          // CRDT updates can be large
	dispatchTimeout = 1900 * time.Millisecond
)

// ConnContext carries the per-connection state handed to every handler.
type ConnContext struct {
	Conn   *clientConn
	Server *WsServer
}

type WsServer struct {
	hub       *Hub
	transport *roomTransport
	router    *Router
	coord     *session.Coordinator
}

func NewWsServer(h *Hub, rdc *redis.Client, roomSvc roomsvc.IRoomService, docs *crdt.Registry) *WsServer {
	transport := newRoomTransport(h, rdc)
	srv := &WsServer{
		hub:       h,
		transport: transport,
		router:    NewRouter(),
		coord:     session.NewCoordinator(roomSvc, docs, transport),
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// Coordinator exposes the session coordinator (health checks, tests).
func (s *WsServer) Coordinator() *session.Coordinator { return s.coord }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true }, // dev-only
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)

	conn := newClientConn(rawConn)
	go s.reader(conn)
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, session.EventJoinRoom,
		func(ctx context.Context, cc *ConnContext, req session.JoinRequest) error {
			return s.coord.Join(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventEditRoom,
		func(ctx context.Context, cc *ConnContext, req session.EditRoomRequest) error {
			return s.coord.EditRoom(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventCursor,
		func(ctx context.Context, cc *ConnContext, req session.CursorRequest) error {
			return s.coord.Cursor(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventSelection,
		func(ctx context.Context, cc *ConnContext, req session.SelectionRequest) error {
			return s.coord.Selection(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventCodeEdit,
		func(ctx context.Context, cc *ConnContext, req session.CodeEditRequest) error {
			return s.coord.CodeEdit(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventEditMember,
		func(ctx context.Context, cc *ConnContext, req session.EditMemberRequest) error {
			return s.coord.EditMember(ctx, cc.Conn, req)
		})
	Register(s.router, session.EventCloseSession,
		func(ctx context.Context, cc *ConnContext, req session.CloseSessionRequest) error {
			return s.coord.CloseSession(ctx, cc.Conn, req)
		})
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		for _, roomID := range conn.joinedRooms() {
			s.transport.LeaveRoom(roomID, conn)
		}
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		s.coord.Disconnect(ctx, conn)
		cancel()
		_ = conn.rawConn.Close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{Conn: conn, Server: s}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err := s.router.dispatch(ctx, cc, env)
		cancel()

		// Failures go back to the offending connection only; they never
		// terminate the connection.
		if err != nil {
			errEvent := session.EventError
			if env.Event == session.EventJoinRoom {
				errEvent = session.EventJoinRoomError
			}
			_ = conn.Send(errEvent, session.ErrorBody{Error: err.Error()})
		}
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
