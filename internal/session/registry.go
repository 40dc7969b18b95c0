package session

import (
	"sync"
	"time"

	"classcodego/internal/services/room"
)

// Toggles is the per-room snapshot of the student feature gates.
type Toggles struct {
	StudentCursorEnabled    bool `json:"studentCursorEnabled"`
	StudentEditCodeEnabled  bool `json:"studentEditCodeEnabled"`
	StudentSelectionEnabled bool `json:"studentSelectionEnabled"`
}

// PartialToggles carries only explicitly requested toggle changes.
type PartialToggles struct {
	StudentCursorEnabled    *bool
	StudentEditCodeEnabled  *bool
	StudentSelectionEnabled *bool
}

// ActiveRoom is the ephemeral collaboration state of one live room.
type ActiveRoom struct {
	ID        string
	TeacherID string

	mu        sync.Mutex
	toggles   Toggles
	completed bool
	members   []*Member
}

// Registry is the authoritative table of currently-live rooms, keyed by room
// identifier. At most one ActiveRoom exists per identifier.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*ActiveRoom
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*ActiveRoom)}
}

// GetOrActivate returns the room's ActiveRoom, creating one from the durable
// record if absent. Idempotent.
func (r *Registry) GetOrActivate(dto *room.RoomDTO) *ActiveRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ar, ok := r.rooms[dto.ID]; ok {
		return ar
	}
	ar := &ActiveRoom{
		ID:        dto.ID,
		TeacherID: dto.TeacherID,
		toggles: Toggles{
			StudentCursorEnabled:    dto.StudentCursorEnabled,
			StudentEditCodeEnabled:  dto.StudentEditCodeEnabled,
			StudentSelectionEnabled: dto.StudentSelectionEnabled,
		},
		completed: dto.Completed,
	}
	r.rooms[dto.ID] = ar
	return ar
}

func (r *Registry) Get(roomID string) (*ActiveRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ar, ok := r.rooms[roomID]
	return ar, ok
}

// Remove evicts the ActiveRoom. No-op when absent.
func (r *Registry) Remove(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// ApplyToggles merges only the provided toggle values into the room's
// snapshot; unspecified toggles keep their current value.
func (r *Registry) ApplyToggles(roomID string, p PartialToggles) {
	ar, ok := r.Get(roomID)
	if !ok {
		return
	}
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if p.StudentCursorEnabled != nil {
		ar.toggles.StudentCursorEnabled = *p.StudentCursorEnabled
	}
	if p.StudentEditCodeEnabled != nil {
		ar.toggles.StudentEditCodeEnabled = *p.StudentEditCodeEnabled
	}
	if p.StudentSelectionEnabled != nil {
		ar.toggles.StudentSelectionEnabled = *p.StudentSelectionEnabled
	}
}

// FindByConn locates the member bound to conn across all active rooms.
// At most one match is expected; the scan stops at the first.
func (r *Registry) FindByConn(conn Conn) (*ActiveRoom, *Member) {
	r.mu.Lock()
	rooms := make([]*ActiveRoom, 0, len(r.rooms))
	for _, ar := range r.rooms {
		rooms = append(rooms, ar)
	}
	r.mu.Unlock()

	for _, ar := range rooms {
		if m := ar.MemberByConn(conn); m != nil {
			return ar, m
		}
	}
	return nil, nil
}

// ─────────────────────────── ActiveRoom state ───────────────────────────────

// Upsert marks an existing member online and rebinds its connection, or
// appends a new member with a freshly assigned color. Identities stay unique.
func (ar *ActiveRoom) Upsert(conn Conn, userID, displayName string) *Member {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, m := range ar.members {
		if m.UserID == userID {
			m.conn = conn
			m.Online = true
			m.LastActivity = time.Now()
			if displayName != "" {
				m.DisplayName = displayName
			}
			return m
		}
	}
	m := &Member{
		conn:         conn,
		UserID:       userID,
		DisplayName:  displayName,
		Online:       true,
		Color:        colorFor(userID),
		LastActivity: time.Now(),
	}
	ar.members = append(ar.members, m)
	return m
}

func (ar *ActiveRoom) MemberByID(userID string) *Member {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, m := range ar.members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

func (ar *ActiveRoom) MemberByConn(conn Conn) *Member {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, m := range ar.members {
		if m.conn == conn {
			return m
		}
	}
	return nil
}

func (ar *ActiveRoom) IsTeacher(userID string) bool { return userID == ar.TeacherID }

func (ar *ActiveRoom) IsCompleted() bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.completed
}

func (ar *ActiveRoom) SetCompleted() {
	ar.mu.Lock()
	ar.completed = true
	ar.mu.Unlock()
}

func (ar *ActiveRoom) Toggles() Toggles {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.toggles
}

func (ar *ActiveRoom) AnyOnline() bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	for _, m := range ar.members {
		if m.Online {
			return true
		}
	}
	return false
}

// Roster snapshots every member for a members-updated broadcast.
func (ar *ActiveRoom) Roster() []MemberInfo {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	roster := make([]MemberInfo, 0, len(ar.members))
	for _, m := range ar.members {
		roster = append(roster, MemberInfo{
			UserID:       m.UserID,
			DisplayName:  m.DisplayName,
			Online:       m.Online,
			Color:        m.Color,
			LastActivity: m.LastActivity,
		})
	}
	return roster
}

// OnlineCursors lists the last known cursor of every online member except
// exclude.
func (ar *ActiveRoom) OnlineCursors(exclude string) []CursorEntry {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	cursors := make([]CursorEntry, 0, len(ar.members))
	for _, m := range ar.members {
		if !m.Online || m.UserID == exclude || m.LastCursor == nil {
			continue
		}
		cursors = append(cursors, CursorEntry{
			UserID:      m.UserID,
			Position:    m.LastCursor,
			Color:       m.Color,
			DisplayName: m.DisplayName,
		})
	}
	return cursors
}

// OnlineSelections lists every online member holding a non-empty selection.
func (ar *ActiveRoom) OnlineSelections(exclude string) []SelectionEntry {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	selections := make([]SelectionEntry, 0, len(ar.members))
	for _, m := range ar.members {
		if !m.Online || m.UserID == exclude || m.LastSelection == nil {
			continue
		}
		entry := SelectionEntry{
			UserID:      m.UserID,
			Color:       m.Color,
			DisplayName: m.DisplayName,
		}
		if p := m.LastSelection.Point; p != nil {
			line, column := p.Line, p.Column
			entry.Line, entry.Column = &line, &column
		} else if rg := m.LastSelection.Range; rg != nil {
			entry.SelectionStart = rg.Start
			entry.SelectionEnd = rg.End
			entry.SelectedText = rg.Text
		}
		selections = append(selections, entry)
	}
	return selections
}
