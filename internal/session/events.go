package session

import (
	"encoding/json"
	"time"

	"classcodego/internal/services/room"
)

// Inbound event names.
const (
	EventJoinRoom     = "join-room"
	EventEditRoom     = "edit-room"
	EventCursor       = "cursor"
	EventSelection    = "selection"
	EventCodeEdit     = "code-edit"
	EventEditMember   = "edit-member"
	EventCloseSession = "close-session"
)

// Outbound event names.
const (
	EventJoinRoomError   = "join-room:error"
	EventError           = "error"
	EventMembersUpdated  = "members-updated"
	EventJoined          = "joined"
	EventCodeEditAction  = "code-edit-action"
	EventSelectionState  = "selection-state"
	EventCursorAction    = "cursor-action"
	EventRoomEdited      = "room-edited"
	EventCompleteSession = "complete-session"
	EventMemberLeft      = "member-left"
)

// members-updated triggers.
const (
	TriggerJoin           = "join"
	TriggerLeave          = "leave"
	TriggerUsernameUpdate = "username-update"
)

// ──────────────────────────── inbound payloads ──────────────────────────────

type JoinRequest struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type EditRoomRequest struct {
	RoomID                  string  `json:"roomId"`
	UserID                  string  `json:"userId"`
	StudentCursorEnabled    *bool   `json:"studentCursorEnabled,omitempty"`
	StudentEditCodeEnabled  *bool   `json:"studentEditCodeEnabled,omitempty"`
	StudentSelectionEnabled *bool   `json:"studentSelectionEnabled,omitempty"`
	Language                *string `json:"language,omitempty"`
	TaskID                  *string `json:"taskId,omitempty"`
}

type CursorRequest struct {
	RoomID   string          `json:"roomId"`
	UserID   string          `json:"userId"`
	Position []float64       `json:"position"`
	Logs     json.RawMessage `json:"logs,omitempty"` // opaque client console logs, not relayed
}

type SelectionRequest struct {
	RoomID         string          `json:"roomId"`
	UserID         string          `json:"userId"`
	Line           *int            `json:"line,omitempty"`
	Column         *int            `json:"column,omitempty"`
	SelectionStart json.RawMessage `json:"selectionStart,omitempty"`
	SelectionEnd   json.RawMessage `json:"selectionEnd,omitempty"`
	SelectedText   *string         `json:"selectedText,omitempty"`
	ClearSelection bool            `json:"clearSelection,omitempty"`
}

type CodeEditRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Update []byte `json:"update"`
}

type EditMemberRequest struct {
	RoomID       string  `json:"roomId"`
	UserID       string  `json:"userId"`
	ChangeUserID string  `json:"changeUserId"`
	DisplayName  *string `json:"displayName,omitempty"`
}

type CloseSessionRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// ──────────────────────────── outbound payloads ─────────────────────────────

type MemberInfo struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName,omitempty"`
	Online       bool      `json:"online"`
	Color        string    `json:"color"`
	LastActivity time.Time `json:"lastActivity"`
}

type CursorEntry struct {
	UserID      string    `json:"userId"`
	Position    []float64 `json:"position"`
	Color       string    `json:"color"`
	DisplayName string    `json:"displayName,omitempty"`
}

// SelectionEntry is the wire form of one member's selection: point fields or
// range fields, never both.
type SelectionEntry struct {
	UserID         string          `json:"userId"`
	Color          string          `json:"color"`
	DisplayName    string          `json:"displayName,omitempty"`
	Line           *int            `json:"line,omitempty"`
	Column         *int            `json:"column,omitempty"`
	SelectionStart json.RawMessage `json:"selectionStart,omitempty"`
	SelectionEnd   json.RawMessage `json:"selectionEnd,omitempty"`
	SelectedText   string          `json:"selectedText,omitempty"`
}

type MembersUpdated struct {
	Members []MemberInfo `json:"members"`
	Trigger string       `json:"trigger"`
	UserID  string       `json:"userId"`
}

type Joined struct {
	UserID            string           `json:"userId"`
	CurrentCursors    []CursorEntry    `json:"currentCursors"`
	CurrentSelections []SelectionEntry `json:"currentSelections"`
	UserColor         string           `json:"userColor"`
	IsTeacher         bool             `json:"isTeacher"`
	RoomPermissions   Toggles          `json:"roomPermissions"`
	Language          string           `json:"language"`
	Completed         bool             `json:"completed"`
}

type CodeEditAction struct {
	Update      []byte `json:"update"`
	UserID      string `json:"userId,omitempty"`
	UserColor   string `json:"userColor,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type SelectionState struct {
	Selections  []SelectionEntry `json:"selections"`
	UpdatedUser string           `json:"updatedUser"`
}

type CursorAction struct {
	Position    []float64 `json:"position"`
	UserID      string    `json:"userId"`
	UserColor   string    `json:"userColor"`
	DisplayName string    `json:"displayName,omitempty"`
}

type RoomEdited struct {
	Room *room.RoomDTO `json:"room"`
}

type CompleteSession struct {
	Message string `json:"message"`
}

type MemberLeft struct {
	UserID     string `json:"userId"`
	KeepCursor bool   `json:"keepCursor"`
}

type ErrorBody struct {
	Error string `json:"error"`
}
