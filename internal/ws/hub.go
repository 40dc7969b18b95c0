package ws

import (
	"sync"
)

// Hub keeps connection sets per roomID.
type Hub struct {
	rooms sync.Map // roomID -> *room
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) Join(roomID string, c *clientConn) {
	for {
		v, _ := h.rooms.LoadOrStore(roomID, newRoom())
		if v.(*room).add(c) {
			return
		}
		// The entry was drained by a concurrent Leave; discard it and retry
		// so the connection never lands in a dead room object.
		h.rooms.CompareAndDelete(roomID, v)
	}
}

func (h *Hub) Leave(roomID string, c *clientConn) {
	if v, ok := h.rooms.Load(roomID); ok {
		if v.(*room).remove(c) == 0 {
			// Only evict the entry we drained; a retrying Join may have
			// replaced it already.
			h.rooms.CompareAndDelete(roomID, v)
		}
	}
}

// Broadcast fans msg out to every connection in the room.
func (h *Hub) Broadcast(roomID string, msg []byte) {
	if v, ok := h.rooms.Load(roomID); ok {
		v.(*room).broadcast(msg, nil)
	}
}

// BroadcastExcept fans msg out to every connection in the room but skip.
func (h *Hub) BroadcastExcept(roomID string, skip *clientConn, msg []byte) {
	if v, ok := h.rooms.Load(roomID); ok {
		v.(*room).broadcast(msg, skip)
	}
}
