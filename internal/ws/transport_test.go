package ws

import (
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fanoutPayload(t *testing.T, origin, event string, body any) []byte {
	t.Helper()
	frame, err := json.Marshal(outEnvelope{Event: event, Body: body})
	require.NoError(t, err)
	payload, err := json.Marshal(fanoutMessage{Origin: origin, Frame: frame})
	require.NoError(t, err)
	return payload
}

func TestRoomChannelName(t *testing.T) {
	assert.Equal(t, "room:abc:events", roomChannel("abc"))
}

func TestBroadcastPublishesToSiblings(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	tr := newRoomTransport(NewHub(), rdc)

	body := map[string]string{"message": "session completed"}
	mock.ExpectPublish(roomChannel("r1"),
		fanoutPayload(t, tr.origin, "complete-session", body)).SetVal(0)

	// No local connections joined the room, so the frame only goes to Redis.
	tr.Broadcast("r1", "complete-session", body)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastExceptStillPublishesFullFrame(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	tr := newRoomTransport(NewHub(), rdc)

	// The excluded sender is local to this instance; siblings must still
	// deliver to all of their own connections.
	body := map[string]any{"position": []float64{1, 2}}
	mock.ExpectPublish(roomChannel("r1"),
		fanoutPayload(t, tr.origin, "cursor-action", body)).SetVal(0)

	tr.BroadcastExcept("r1", nil, "cursor-action", body)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastWithoutRedisIsLocalOnly(t *testing.T) {
	tr := newRoomTransport(NewHub(), nil)
	assert.Nil(t, tr.subMgr)
	tr.Broadcast("r1", "members-updated", map[string]any{})
}

func TestJoinRoomSubscribesOncePerConnection(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	tr := newRoomTransport(NewHub(), rdc)
	conn := newClientConn(nil)

	// A client may re-send its join for the same room (reconnect logic,
	// retries); the room subscription must not outlive the connection.
	tr.JoinRoom("r1", conn)
	tr.JoinRoom("r1", conn)

	tr.subMgr.mu.Lock()
	entry, ok := tr.subMgr.subs["r1"]
	refCnt := 0
	if ok {
		refCnt = entry.refCnt
	}
	tr.subMgr.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, 1, refCnt)

	for _, roomID := range conn.joinedRooms() {
		tr.LeaveRoom(roomID, conn)
	}

	tr.subMgr.mu.Lock()
	_, ok = tr.subMgr.subs["r1"]
	tr.subMgr.mu.Unlock()
	assert.False(t, ok, "subscription must be gone once its last connection left")
}

func TestOriginIsPerInstance(t *testing.T) {
	a := newRoomTransport(NewHub(), nil)
	b := newRoomTransport(NewHub(), nil)
	assert.NotEmpty(t, a.origin)
	assert.NotEqual(t, a.origin, b.origin)
}
