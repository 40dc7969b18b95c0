package room

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RoomDTO is the durable projection of a classroom room.
type RoomDTO struct {
	ID                      string    `json:"id"`
	TeacherID               string    `json:"teacherId"`
	Students                []string  `json:"students"`
	StudentCursorEnabled    bool      `json:"studentCursorEnabled"`
	StudentEditCodeEnabled  bool      `json:"studentEditCodeEnabled"`
	StudentSelectionEnabled bool      `json:"studentSelectionEnabled"`
	Completed               bool      `json:"completed"`
	TaskID                  string    `json:"taskId,omitempty"`
	Language                string    `json:"language"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// IsParticipant reports whether identity is the teacher or an enrolled student.
func (r *RoomDTO) IsParticipant(identity string) bool {
	if identity == r.TeacherID {
		return true
	}
	for _, s := range r.Students {
		if s == identity {
			return true
		}
	}
	return false
}

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotOwner     = errors.New("room not owned by caller")
)

// CreateRoomParams carries the optional fields of a new room. Unset toggles
// default to enabled.
type CreateRoomParams struct {
	TeacherID               string
	StudentCursorEnabled    *bool
	StudentEditCodeEnabled  *bool
	StudentSelectionEnabled *bool
	TaskID                  string
	Language                string
}

// UpdateRoomParams is a partial update: nil fields keep their stored value.
type UpdateRoomParams struct {
	StudentCursorEnabled    *bool
	StudentEditCodeEnabled  *bool
	StudentSelectionEnabled *bool
	TaskID                  *string
	Language                *string
}

type IRoomService interface {
	FindByID(ctx context.Context, id string) (*RoomDTO, error)
	Create(ctx context.Context, p CreateRoomParams) (*RoomDTO, error)
	Update(ctx context.Context, id, ownerID string, p UpdateRoomParams) (*RoomDTO, error)
	Delete(ctx context.Context, id, ownerID string) error
	ListForParticipant(ctx context.Context, identity string, page, limit int) ([]RoomDTO, int, error)
	Enroll(ctx context.Context, id, identity string) (*RoomDTO, error)
	MarkCompleted(ctx context.Context, id string) (*RoomDTO, error)

	DocumentState(ctx context.Context, roomID string) ([]byte, error)
	SaveDocumentState(ctx context.Context, roomID string, state []byte) error
}

type roomService struct {
	db *sql.DB
}

func NewRoomService(db *sql.DB) IRoomService {
	return &roomService{db: db}
}

const roomColumns = `id, teacher_id, students, student_cursor_enabled,
       student_edit_code_enabled, student_selection_enabled,
       completed, coalesce(task_id,''), language, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*RoomDTO, error) {
	var (
		dto      RoomDTO
		students []byte
	)
	err := row.Scan(&dto.ID, &dto.TeacherID, &students,
		&dto.StudentCursorEnabled, &dto.StudentEditCodeEnabled,
		&dto.StudentSelectionEnabled, &dto.Completed,
		&dto.TaskID, &dto.Language, &dto.CreatedAt, &dto.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(students) > 0 {
		if err := json.Unmarshal(students, &dto.Students); err != nil {
			return nil, fmt.Errorf("decode students: %w", err)
		}
	}
	if dto.Students == nil {
		dto.Students = []string{}
	}
	return &dto, nil
}

func (svc *roomService) FindByID(ctx context.Context, id string) (*RoomDTO, error) {
	row := svc.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	dto, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return dto, err
}

func (svc *roomService) Create(ctx context.Context, p CreateRoomParams) (*RoomDTO, error) {
	id := newRoomID()
	language := p.Language
	if language == "" {
		language = "javascript"
	}
	row := svc.db.QueryRowContext(ctx, `
	  INSERT INTO rooms (id, teacher_id, students,
	                     student_cursor_enabled, student_edit_code_enabled,
	                     student_selection_enabled, completed, task_id, language,
	                     created_at, updated_at)
	       VALUES ($1, $2, '[]'::jsonb,
	               coalesce($3, true), coalesce($4, true),
	               coalesce($5, true), false, nullif($6,''), $7, now(), now())
	  RETURNING `+roomColumns,
		id, p.TeacherID,
		p.StudentCursorEnabled, p.StudentEditCodeEnabled, p.StudentSelectionEnabled,
		p.TaskID, language)
	return scanRoom(row)
}

// Update persists only the explicitly provided fields. Fails with ErrNotOwner
// when ownerID does not own a matching room.
func (svc *roomService) Update(ctx context.Context, id, ownerID string, p UpdateRoomParams) (*RoomDTO, error) {
	row := svc.db.QueryRowContext(ctx, `
	  UPDATE rooms
	     SET student_cursor_enabled    = coalesce($3, student_cursor_enabled),
	         student_edit_code_enabled = coalesce($4, student_edit_code_enabled),
	         student_selection_enabled = coalesce($5, student_selection_enabled),
	         task_id    = coalesce($6, task_id),
	         language   = coalesce($7, language),
	         updated_at = now()
	   WHERE id = $1 AND teacher_id = $2
	  RETURNING `+roomColumns,
		id, ownerID,
		p.StudentCursorEnabled, p.StudentEditCodeEnabled, p.StudentSelectionEnabled,
		p.TaskID, p.Language)
	dto, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing room from a foreign one.
		if _, ferr := svc.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrNotOwner
	}
	return dto, err
}

func (svc *roomService) Delete(ctx context.Context, id, ownerID string) error {
	res, err := svc.db.ExecContext(ctx,
		`DELETE FROM rooms WHERE id = $1 AND teacher_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, ferr := svc.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrNotOwner
	}
	_, _ = svc.db.ExecContext(ctx,
		`DELETE FROM room_documents WHERE room_id = $1`, id)
	return nil
}

func (svc *roomService) ListForParticipant(ctx context.Context, identity string, page, limit int) ([]RoomDTO, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	err := svc.db.QueryRowContext(ctx, `
	  SELECT count(*) FROM rooms
	   WHERE teacher_id = $1 OR students @> to_jsonb($1::text)`,
		identity).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := svc.db.QueryContext(ctx, `
	  SELECT `+roomColumns+` FROM rooms
	   WHERE teacher_id = $1 OR students @> to_jsonb($1::text)
	   ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		identity, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]RoomDTO, 0, limit)
	for rows.Next() {
		dto, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *dto)
	}
	return list, total, rows.Err()
}

// Enroll appends identity to the student roster. Enrolling an already-enrolled
// identity is a no-op, never a duplicate.
func (svc *roomService) Enroll(ctx context.Context, id, identity string) (*RoomDTO, error) {
	_, err := svc.db.ExecContext(ctx, `
	  UPDATE rooms
	     SET students = students || to_jsonb($2::text), updated_at = now()
	   WHERE id = $1 AND NOT students @> to_jsonb($2::text)`,
		id, identity)
	if err != nil {
		return nil, err
	}
	return svc.FindByID(ctx, id)
}

func (svc *roomService) MarkCompleted(ctx context.Context, id string) (*RoomDTO, error) {
	row := svc.db.QueryRowContext(ctx, `
	  UPDATE rooms SET completed = true, updated_at = now()
	   WHERE id = $1
	  RETURNING `+roomColumns, id)
	dto, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return dto, err
}

func (svc *roomService) DocumentState(ctx context.Context, roomID string) ([]byte, error) {
	var state []byte
	err := svc.db.QueryRowContext(ctx,
		`SELECT state FROM room_documents WHERE room_id = $1`, roomID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return state, err
}

func (svc *roomService) SaveDocumentState(ctx context.Context, roomID string, state []byte) error {
	_, err := svc.db.ExecContext(ctx, `
	  INSERT INTO room_documents (room_id, state, updated_at)
	       VALUES ($1, $2, now())
	  ON CONFLICT (room_id) DO UPDATE
	        SET state = EXCLUDED.state, updated_at = now()`,
		roomID, state)
	return err
}

func newRoomID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
