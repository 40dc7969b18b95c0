package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"classcodego/internal/crdt"
	"classcodego/internal/services/room"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrMemberNotFound  = errors.New("member not found")
	ErrEditingDisabled = errors.New("editing disabled")
)

// Transport is the room-scoped fanout surface of the real-time layer.
// Per-connection sends go through Conn directly.
type Transport interface {
	JoinRoom(roomID string, c Conn)
	Broadcast(roomID, event string, body any)
	BroadcastExcept(roomID string, sender Conn, event string, body any)
}

// Coordinator owns every live editing session: it merges inbound events into
// the active-room registry and the document registry, consults the permission
// gate, and emits the resulting broadcasts.
//
// No lock is held across a store or engine call; handlers re-validate room
// state after any such call before mutating or broadcasting, since another
// event for the same room may have interleaved.
type Coordinator struct {
	registry  *Registry
	store     room.IRoomService
	docs      *crdt.Registry
	transport Transport
}

func NewCoordinator(store room.IRoomService, docs *crdt.Registry, transport Transport) *Coordinator {
	return &Coordinator{
		registry:  NewRegistry(),
		store:     store,
		docs:      docs,
		transport: transport,
	}
}

// Registry exposes the active-room table (read paths, tests).
func (co *Coordinator) Registry() *Registry { return co.registry }

// Join runs the session entry protocol: fetch the durable room, enroll the
// identity if needed, bind the connection, upsert the member, then send the
// roster broadcast and the joiner's catch-up messages.
func (co *Coordinator) Join(ctx context.Context, conn Conn, req JoinRequest) error {
	if req.RoomID == "" || req.UserID == "" {
		return ErrInvalidPayload
	}
	dto, err := co.store.FindByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if !dto.IsParticipant(req.UserID) {
		if dto, err = co.store.Enroll(ctx, req.RoomID, req.UserID); err != nil {
			return fmt.Errorf("%w: %s", room.ErrRoomNotFound, req.RoomID)
		}
	}

	co.transport.JoinRoom(req.RoomID, conn)
	ar := co.registry.GetOrActivate(dto)
	member := ar.Upsert(conn, req.UserID, req.DisplayName)

	co.transport.Broadcast(req.RoomID, EventMembersUpdated, MembersUpdated{
		Members: ar.Roster(),
		Trigger: TriggerJoin,
		UserID:  req.UserID,
	})

	_ = conn.Send(EventJoined, Joined{
		UserID:            req.UserID,
		CurrentCursors:    ar.OnlineCursors(req.UserID),
		CurrentSelections: ar.OnlineSelections(req.UserID),
		UserColor:         member.Color,
		IsTeacher:         ar.IsTeacher(req.UserID),
		RoomPermissions:   ar.Toggles(),
		Language:          dto.Language,
		Completed:         dto.Completed,
	})

	// Snapshot catch-up: a from-scratch encoding equivalent to replaying the
	// whole update history.
	if _, created := co.docs.GetOrCreate(req.RoomID); created {
		if state, err := co.store.DocumentState(ctx, req.RoomID); err == nil && len(state) > 0 {
			co.docs.Seed(req.RoomID, state)
		}
	}
	_ = conn.Send(EventCodeEditAction, CodeEditAction{
		Update: co.docs.FullState(req.RoomID),
	})

	_ = conn.Send(EventSelectionState, SelectionState{
		Selections:  ar.OnlineSelections(""),
		UpdatedUser: req.UserID,
	})
	return nil
}

// EditRoom is the teacher-only configuration change. The persisted partial
// update and the in-memory toggle snapshot are written together so gated
// actions never regress to an absence-default.
func (co *Coordinator) EditRoom(ctx context.Context, conn Conn, req EditRoomRequest) error {
	dto, err := co.store.FindByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if dto.TeacherID != req.UserID {
		return ErrUnauthorized
	}
	if dto.Completed {
		return nil
	}

	updated, err := co.store.Update(ctx, req.RoomID, req.UserID, room.UpdateRoomParams{
		StudentCursorEnabled:    req.StudentCursorEnabled,
		StudentEditCodeEnabled:  req.StudentEditCodeEnabled,
		StudentSelectionEnabled: req.StudentSelectionEnabled,
		Language:                req.Language,
		TaskID:                  req.TaskID,
	})
	if err != nil {
		// Storage detail stays internal.
		return fmt.Errorf("%w: %s", room.ErrRoomNotFound, req.RoomID)
	}

	co.registry.ApplyToggles(req.RoomID, PartialToggles{
		StudentCursorEnabled:    req.StudentCursorEnabled,
		StudentEditCodeEnabled:  req.StudentEditCodeEnabled,
		StudentSelectionEnabled: req.StudentSelectionEnabled,
	})

	// The room may have been closed while the update was in flight.
	if ar, ok := co.registry.Get(req.RoomID); ok && ar.IsCompleted() {
		return nil
	}
	co.transport.Broadcast(req.RoomID, EventRoomEdited, RoomEdited{Room: updated})
	return nil
}

// Cursor relays a caret move to everyone else in the room.
func (co *Coordinator) Cursor(ctx context.Context, conn Conn, req CursorRequest) error {
	ar, ok := co.registry.Get(req.RoomID)
	if !ok || !ar.AllowCursor(req.UserID) {
		return nil
	}
	if len(req.Position) != 2 {
		return ErrInvalidPayload
	}

	member := ar.MemberByID(req.UserID)
	if member == nil {
		return nil
	}
	ar.mu.Lock()
	member.LastCursor = req.Position
	member.LastActivity = time.Now()
	color, displayName := member.Color, member.DisplayName
	ar.mu.Unlock()

	co.transport.BroadcastExcept(req.RoomID, conn, EventCursorAction, CursorAction{
		Position:    req.Position,
		UserID:      req.UserID,
		UserColor:   color,
		DisplayName: displayName,
	})
	return nil
}

// Selection classifies the payload as a point, a range, or a clear, applies
// exactly one of them, and re-broadcasts the full selection set.
func (co *Coordinator) Selection(ctx context.Context, conn Conn, req SelectionRequest) error {
	ar, ok := co.registry.Get(req.RoomID)
	if !ok || !ar.AllowSelection(req.UserID) {
		return nil
	}
	member := ar.MemberByID(req.UserID)
	if member == nil {
		return nil
	}

	hasRange := req.SelectionStart != nil && req.SelectionEnd != nil && req.SelectedText != nil
	hasPoint := req.Line != nil && req.Column != nil && !hasRange

	ar.mu.Lock()
	switch {
	case hasPoint:
		member.LastSelection = &Selection{Point: &PointSelection{Line: *req.Line, Column: *req.Column}}
	case hasRange:
		member.LastSelection = &Selection{Range: &RangeSelection{
			Start: req.SelectionStart,
			End:   req.SelectionEnd,
			Text:  *req.SelectedText,
		}}
	case req.ClearSelection:
		member.LastSelection = nil
	default:
		ar.mu.Unlock()
		return nil
	}
	member.LastActivity = time.Now()
	ar.mu.Unlock()

	co.transport.BroadcastExcept(req.RoomID, conn, EventSelectionState, SelectionState{
		Selections:  ar.OnlineSelections(""),
		UpdatedUser: req.UserID,
	})
	return nil
}

// CodeEdit applies an opaque update blob to the room document and relays it
// to everyone but the sender.
func (co *Coordinator) CodeEdit(ctx context.Context, conn Conn, req CodeEditRequest) error {
	if req.UserID == "" {
		return ErrInvalidPayload
	}
	ar, ok := co.registry.Get(req.RoomID)
	if !ok {
		return nil
	}
	allowed, err := ar.AllowEdit(req.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}

	if err := co.docs.Apply(req.RoomID, req.Update); err != nil {
		// A structurally invalid blob must not take the session down.
		zap.L().Warn("session.code_edit_rejected",
			zap.String("room", req.RoomID), zap.String("user", req.UserID), zap.Error(err))
		return err
	}

	// The engine call may have interleaved with a close-session.
	if ar.IsCompleted() && !ar.IsTeacher(req.UserID) {
		return nil
	}

	action := CodeEditAction{Update: req.Update, UserID: req.UserID}
	if member := ar.MemberByID(req.UserID); member != nil {
		ar.mu.Lock()
		member.LastActivity = time.Now()
		action.UserColor = member.Color
		action.DisplayName = member.DisplayName
		ar.mu.Unlock()
	}

	co.transport.BroadcastExcept(req.RoomID, conn, EventCodeEditAction, action)
	return nil
}

// EditMember renames a member. Allowed for the subject itself or the teacher.
func (co *Coordinator) EditMember(ctx context.Context, conn Conn, req EditMemberRequest) error {
	ar, ok := co.registry.Get(req.RoomID)
	if !ok {
		return fmt.Errorf("%w: %s", room.ErrRoomNotFound, req.RoomID)
	}
	if ar.IsCompleted() {
		return nil
	}
	member := ar.MemberByID(req.ChangeUserID)
	if member == nil {
		return ErrMemberNotFound
	}
	if req.UserID != req.ChangeUserID && !ar.IsTeacher(req.UserID) {
		return ErrUnauthorized
	}
	// displayName is optional; a rename without one changes nothing.
	if req.DisplayName == nil {
		return nil
	}

	ar.mu.Lock()
	member.DisplayName = *req.DisplayName
	member.LastActivity = time.Now()
	ar.mu.Unlock()

	co.transport.Broadcast(req.RoomID, EventMembersUpdated, MembersUpdated{
		Members: ar.Roster(),
		Trigger: TriggerUsernameUpdate,
		UserID:  req.ChangeUserID,
	})
	return nil
}

// CloseSession marks the room completed, evicts its session state, and
// notifies the whole room.
func (co *Coordinator) CloseSession(ctx context.Context, conn Conn, req CloseSessionRequest) error {
	dto, err := co.store.FindByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if dto.TeacherID != req.UserID {
		return ErrUnauthorized
	}
	if dto.Completed {
		return nil
	}
	if _, err := co.store.MarkCompleted(ctx, req.RoomID); err != nil {
		return fmt.Errorf("%w: %s", room.ErrRoomNotFound, req.RoomID)
	}

	if ar, ok := co.registry.Get(req.RoomID); ok {
		ar.SetCompleted()
	}
	co.evictRoom(ctx, req.RoomID)
	co.transport.Broadcast(req.RoomID, EventCompleteSession, CompleteSession{
		Message: "session completed",
	})
	return nil
}

// Disconnect is the reaper: locate the member bound to conn, mark it offline,
// clear its selection, re-broadcast presence, and garbage-collect the room
// once nobody is left online.
func (co *Coordinator) Disconnect(ctx context.Context, conn Conn) {
	ar, member := co.registry.FindByConn(conn)
	if ar == nil {
		return
	}

	ar.mu.Lock()
	member.Online = false
	member.LastSelection = nil
	userID := member.UserID
	ar.mu.Unlock()

	co.transport.Broadcast(ar.ID, EventMemberLeft, MemberLeft{
		UserID:     userID,
		KeepCursor: true,
	})
	co.transport.Broadcast(ar.ID, EventMembersUpdated, MembersUpdated{
		Members: ar.Roster(),
		Trigger: TriggerLeave,
		UserID:  userID,
	})
	co.transport.Broadcast(ar.ID, EventSelectionState, SelectionState{
		Selections:  ar.OnlineSelections(""),
		UpdatedUser: userID,
	})

	if !ar.AnyOnline() {
		co.evictRoom(ctx, ar.ID)
		zap.L().Info("session.room_evicted", zap.String("room", ar.ID))
	}
}

// evictRoom drops the active session and its document, persisting the
// document's final state first.
func (co *Coordinator) evictRoom(ctx context.Context, roomID string) {
	if state := co.docs.FullState(roomID); len(state) > 0 {
		if err := co.store.SaveDocumentState(ctx, roomID, state); err != nil {
			zap.L().Warn("session.doc_persist", zap.String("room", roomID), zap.Error(err))
		}
	}
	co.docs.Delete(roomID)
	co.registry.Remove(roomID)
}
