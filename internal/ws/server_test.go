package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcodego/internal/crdt"
	roomsvc "classcodego/internal/services/room"
)

// stubStore serves a single pre-baked room.
type stubStore struct {
	room *roomsvc.RoomDTO
}

func (s *stubStore) FindByID(_ context.Context, id string) (*roomsvc.RoomDTO, error) {
	if s.room == nil || s.room.ID != id {
		return nil, roomsvc.ErrRoomNotFound
	}
	cp := *s.room
	return &cp, nil
}

func (s *stubStore) Create(context.Context, roomsvc.CreateRoomParams) (*roomsvc.RoomDTO, error) {
	panic("not used")
}

func (s *stubStore) Update(context.Context, string, string, roomsvc.UpdateRoomParams) (*roomsvc.RoomDTO, error) {
	panic("not used")
}

func (s *stubStore) Delete(context.Context, string, string) error { panic("not used") }

func (s *stubStore) ListForParticipant(context.Context, string, int, int) ([]roomsvc.RoomDTO, int, error) {
	panic("not used")
}

func (s *stubStore) Enroll(_ context.Context, id, identity string) (*roomsvc.RoomDTO, error) {
	dto, err := s.FindByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	dto.Students = append(dto.Students, identity)
	s.room.Students = dto.Students
	return dto, nil
}

func (s *stubStore) MarkCompleted(context.Context, string) (*roomsvc.RoomDTO, error) {
	panic("not used")
}

func (s *stubStore) DocumentState(context.Context, string) ([]byte, error) { return nil, nil }

func (s *stubStore) SaveDocumentState(context.Context, string, []byte) error { return nil }

func dialTestServer(t *testing.T, store roomsvc.IRoomService) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := NewWsServer(NewHub(), nil, store, crdt.NewRegistry(crdt.NewLogEngine(), 0))
	engine := gin.New()
	engine.GET("/ws", srv.Handle)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, body any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Body: raw}))
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Event string          `json:"event"`
		Body  json.RawMessage `json:"body"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	return env.Event, env.Body
}

func TestWsJoinUnknownRoom(t *testing.T) {
	conn := dialTestServer(t, &stubStore{})

	sendEvent(t, conn, "join-room", map[string]string{"roomId": "nope", "userId": "s1"})

	event, body := readEvent(t, conn)
	assert.Equal(t, "join-room:error", event)
	var errBody struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Contains(t, errBody.Error, "room not found")
}

func TestWsUnknownEvent(t *testing.T) {
	conn := dialTestServer(t, &stubStore{})

	sendEvent(t, conn, "make-coffee", map[string]string{})

	event, body := readEvent(t, conn)
	assert.Equal(t, "error", event)
	assert.Contains(t, string(body), "unknown_event")
}

func TestWsJoinFlow(t *testing.T) {
	store := &stubStore{room: &roomsvc.RoomDTO{
		ID:                      "r1",
		TeacherID:               "t1",
		Students:                []string{},
		StudentCursorEnabled:    true,
		StudentEditCodeEnabled:  true,
		StudentSelectionEnabled: true,
		Language:                "javascript",
	}}
	conn := dialTestServer(t, store)

	sendEvent(t, conn, "join-room", map[string]string{
		"roomId": "r1", "userId": "s1", "displayName": "Alice",
	})

	// The joiner is in the room group before the roster broadcast goes out,
	// so it sees all four frames in order.
	got := make(map[string]json.RawMessage, 4)
	for i := 0; i < 4; i++ {
		event, body := readEvent(t, conn)
		got[event] = body
	}
	require.Contains(t, got, "members-updated")
	require.Contains(t, got, "joined")
	require.Contains(t, got, "code-edit-action")
	require.Contains(t, got, "selection-state")

	var joined struct {
		UserID    string `json:"userId"`
		IsTeacher bool   `json:"isTeacher"`
		UserColor string `json:"userColor"`
		Language  string `json:"language"`
	}
	require.NoError(t, json.Unmarshal(got["joined"], &joined))
	assert.Equal(t, "s1", joined.UserID)
	assert.False(t, joined.IsTeacher)
	assert.NotEmpty(t, joined.UserColor)
	assert.Equal(t, "javascript", joined.Language)
}
