package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classcodego/internal/session"
)

const publishTimeout = 1500 * time.Millisecond

// roomTransport implements session.Transport over the local hub, mirroring
// every room-scoped frame to Redis so sibling instances can relay it to
// their own connections.
type roomTransport struct {
	hub    *Hub
	rdc    *redis.Client
	subMgr *subscriptionManager
	origin string
}

func newRoomTransport(hub *Hub, rdc *redis.Client) *roomTransport {
	t := &roomTransport{
		hub:    hub,
		rdc:    rdc,
		origin: newOriginID(),
	}
	if rdc != nil {
		t.subMgr = newSubscriptionManager(rdc, hub, t.origin)
	}
	return t
}

func (t *roomTransport) JoinRoom(roomID string, c session.Conn) {
	conn, ok := c.(*clientConn)
	if !ok {
		return
	}
	// Repeated joins from the same connection must not grow the subscription
	// ref-count: disconnect cleanup leaves each room exactly once.
	if !conn.trackRoom(roomID) {
		return
	}
	t.hub.Join(roomID, conn)
	if t.subMgr != nil {
		t.subMgr.Subscribe(roomID)
	}
}

// LeaveRoom detaches a connection from the local room group. Not part of
// session.Transport; the reader loop drives it on disconnect.
func (t *roomTransport) LeaveRoom(roomID string, conn *clientConn) {
	t.hub.Leave(roomID, conn)
	if t.subMgr != nil {
		t.subMgr.Unsubscribe(roomID)
	}
}

func (t *roomTransport) Broadcast(roomID, event string, body any) {
	frame, err := json.Marshal(outEnvelope{Event: event, Body: body})
	if err != nil {
		zap.L().Warn("ws.marshal_broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	t.hub.Broadcast(roomID, frame)
	t.publish(roomID, frame)
}

func (t *roomTransport) BroadcastExcept(roomID string, sender session.Conn, event string, body any) {
	frame, err := json.Marshal(outEnvelope{Event: event, Body: body})
	if err != nil {
		zap.L().Warn("ws.marshal_broadcast", zap.String("event", event), zap.Error(err))
		return
	}
	skip, _ := sender.(*clientConn)
	t.hub.BroadcastExcept(roomID, skip, frame)
	// The sender is local, so siblings broadcast to everyone.
	t.publish(roomID, frame)
}

func (t *roomTransport) publish(roomID string, frame []byte) {
	if t.rdc == nil {
		return
	}
	payload, err := json.Marshal(fanoutMessage{Origin: t.origin, Frame: frame})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := t.rdc.Publish(ctx, roomChannel(roomID), payload).Err(); err != nil {
		zap.L().Warn("ws.publish", zap.String("room", roomID), zap.Error(err))
	}
}

func roomChannel(roomID string) string { return "room:" + roomID + ":events" }

func newOriginID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
