package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubRoom(t *testing.T, h *Hub, roomID string) *room {
	t.Helper()
	v, ok := h.rooms.Load(roomID)
	require.True(t, ok)
	return v.(*room)
}

func roomHasConn(r *room, c *clientConn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[c]
	return ok
}

func TestHubJoinLeave(t *testing.T) {
	h := NewHub()
	c1, c2 := newClientConn(nil), newClientConn(nil)

	h.Join("r1", c1)
	h.Join("r1", c2)
	r := hubRoom(t, h, "r1")
	assert.True(t, roomHasConn(r, c1))
	assert.True(t, roomHasConn(r, c2))

	h.Leave("r1", c1)
	assert.False(t, roomHasConn(r, c1))
	assert.True(t, roomHasConn(r, c2))

	h.Leave("r1", c2)
	_, ok := h.rooms.Load("r1")
	assert.False(t, ok, "empty room entry is evicted")
}

func TestHubJoinNeverLandsInDrainedRoom(t *testing.T) {
	h := NewHub()
	c1, c2 := newClientConn(nil), newClientConn(nil)

	h.Join("r1", c1)
	stale := hubRoom(t, h, "r1")

	// Drain the room without evicting its hub entry, the state a concurrent
	// Leave exposes between its remove and its map delete.
	require.Zero(t, stale.remove(c1))

	h.Join("r1", c2)
	fresh := hubRoom(t, h, "r1")
	assert.NotSame(t, stale, fresh, "joiner must not be added to a drained room")
	assert.True(t, roomHasConn(fresh, c2))
	assert.False(t, roomHasConn(stale, c2))
}

func TestHubLeaveKeepsReplacementEntry(t *testing.T) {
	h := NewHub()
	c1, c2 := newClientConn(nil), newClientConn(nil)

	h.Join("r1", c1)
	stale := hubRoom(t, h, "r1")

	// Interleaving: the leaver drains the room, a joiner replaces the entry,
	// and only then does the leaver run its eviction.
	require.Zero(t, stale.remove(c1))
	h.Join("r1", c2)
	fresh := hubRoom(t, h, "r1")
	require.NotSame(t, stale, fresh)

	h.rooms.CompareAndDelete("r1", stale) // the leaver's eviction, late

	current := hubRoom(t, h, "r1")
	assert.Same(t, fresh, current, "late eviction must not remove the replacement")
	assert.True(t, roomHasConn(current, c2))
}

func TestDrainedRoomRejectsAdd(t *testing.T) {
	r := newRoom()
	c1, c2 := newClientConn(nil), newClientConn(nil)

	assert.True(t, r.add(c1))
	assert.Zero(t, r.remove(c1))
	assert.False(t, r.add(c2), "a drained room stays closed")
}
