package room

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomRowColumns = []string{
	"id", "teacher_id", "students",
	"student_cursor_enabled", "student_edit_code_enabled", "student_selection_enabled",
	"completed", "task_id", "language", "created_at", "updated_at",
}

func roomRow(id, teacher, students string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(roomRowColumns).
		AddRow(id, teacher, []byte(students), true, true, true, false, "", "javascript", now, now)
}

func newMockSvc(t *testing.T) (IRoomService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRoomService(db), mock
}

func TestFindByID(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `["s1","s2"]`))

	dto, err := svc.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", dto.ID)
	assert.Equal(t, "t1", dto.TeacherID)
	assert.Equal(t, []string{"s1", "s2"}, dto.Students)
	assert.True(t, dto.IsParticipant("t1"))
	assert.True(t, dto.IsParticipant("s2"))
	assert.False(t, dto.IsParticipant("stranger"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	_, err := svc.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDEmptyRoster(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `[]`))

	dto, err := svc.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.NotNil(t, dto.Students)
	assert.Empty(t, dto.Students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotOwner(t *testing.T) {
	svc, mock := newMockSvc(t)

	// Zero rows from the guarded UPDATE, then the room turns out to exist.
	mock.ExpectQuery(`UPDATE rooms`).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `[]`))

	off := false
	_, err := svc.Update(context.Background(), "r1", "intruder", UpdateRoomParams{
		StudentEditCodeEnabled: &off,
	})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRoom(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`UPDATE rooms`).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	_, err := svc.Update(context.Background(), "ghost", "t1", UpdateRoomParams{})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollAppendsOnce(t *testing.T) {
	svc, mock := newMockSvc(t)

	// The UPDATE is guarded by a containment check, so a second enroll of the
	// same identity touches zero rows and the read-back is unchanged.
	mock.ExpectExec(`UPDATE rooms`).
		WithArgs("r1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `["s1"]`))

	dto, err := svc.Enroll(context.Background(), "r1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, dto.Students)

	mock.ExpectExec(`UPDATE rooms`).
		WithArgs("r1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `["s1"]`))

	dto, err = svc.Enroll(context.Background(), "r1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, dto.Students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompleted(t *testing.T) {
	svc, mock := newMockSvc(t)

	now := time.Now()
	mock.ExpectQuery(`UPDATE rooms SET completed = true`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roomRowColumns).
			AddRow("r1", "t1", []byte(`[]`), true, true, true, true, "", "javascript", now, now))

	dto, err := svc.MarkCompleted(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, dto.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedMissingRoom(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`UPDATE rooms SET completed = true`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	_, err := svc.MarkCompleted(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStateRoundTrip(t *testing.T) {
	svc, mock := newMockSvc(t)

	state := []byte{0x05, 'h', 'e', 'l', 'l', 'o'}
	mock.ExpectExec(`INSERT INTO room_documents`).
		WithArgs("r1", state).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT state FROM room_documents`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(state))

	require.NoError(t, svc.SaveDocumentState(context.Background(), "r1", state))
	got, err := svc.DocumentState(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, state, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStateAbsent(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`SELECT state FROM room_documents`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	got, err := svc.DocumentState(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForParticipant(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM rooms`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT .+ FROM rooms\s+WHERE teacher_id = \$1 OR students`).
		WithArgs("s1", 10, 10).
		WillReturnRows(roomRow("r1", "t1", `["s1"]`))

	list, total, err := svc.ListForParticipant(context.Background(), "s1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotOwner(t *testing.T) {
	svc, mock := newMockSvc(t)

	mock.ExpectExec(`DELETE FROM rooms`).
		WithArgs("r1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(roomRow("r1", "t1", `[]`))

	err := svc.Delete(context.Background(), "r1", "intruder")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
