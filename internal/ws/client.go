package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type clientConn struct {
	rawConn *websocket.Conn
	mu      sync.Mutex

	roomsMu sync.Mutex
	rooms   map[string]struct{} // room groups this connection has joined
}

func newClientConn(raw *websocket.Conn) *clientConn {
	return &clientConn{rawConn: raw, rooms: make(map[string]struct{})}
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

// Send satisfies session.Conn: one enveloped frame to this connection only.
func (c *clientConn) Send(event string, body any) error {
	raw, err := json.Marshal(outEnvelope{Event: event, Body: body})
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, raw)
}

// trackRoom records membership in a room group, reporting whether this is
// the connection's first join of that room.
func (c *clientConn) trackRoom(roomID string) bool {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	if _, ok := c.rooms[roomID]; ok {
		return false
	}
	c.rooms[roomID] = struct{}{}
	return true
}

func (c *clientConn) joinedRooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}
