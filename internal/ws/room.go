package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

type room struct {
	mu     sync.RWMutex
	conns  map[*clientConn]struct{}
	closed bool // set when the last connection leaves; the object is dead
}

func newRoom() *room { return &room{conns: map[*clientConn]struct{}{}} }

// add reports false when the room has already been drained and closed; the
// caller must retry against a fresh hub entry.
func (r *room) add(c *clientConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[c] = struct{}{}
	return true
}

func (r *room) remove(c *clientConn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
	n := len(r.conns)
	if n == 0 {
		r.closed = true
	}
	return n
}

// broadcast writes msg to every connection except skip (nil = everyone).
func (r *room) broadcast(msg []byte, skip *clientConn) {
	// Take a quick snapshot of the current connections
	r.mu.RLock()
	conns := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		if c == skip {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	// Do the I/O outside the lock
	var failed []*clientConn
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.remove(c)
		_ = c.rawConn.Close()
	}
}
