package session

// Permission gate. The teacher is exempt from the student toggles; nobody is
// exempt from a completed room except where noted.

// AllowCursor reports whether userID may broadcast a cursor position.
// Completed rooms are silent for everyone.
func (ar *ActiveRoom) AllowCursor(userID string) bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if ar.completed {
		return false
	}
	return userID == ar.TeacherID || ar.toggles.StudentCursorEnabled
}

// AllowSelection reports whether userID may broadcast a selection. The
// teacher keeps selection rights on a completed room.
func (ar *ActiveRoom) AllowSelection(userID string) bool {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if userID == ar.TeacherID {
		return true
	}
	return !ar.completed && ar.toggles.StudentSelectionEnabled
}

// AllowEdit reports whether userID may edit the document. A disabled toggle
// is surfaced to the caller; a completed room stays silent.
func (ar *ActiveRoom) AllowEdit(userID string) (bool, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if userID == ar.TeacherID {
		return true, nil
	}
	if ar.completed {
		return false, nil
	}
	if !ar.toggles.StudentEditCodeEnabled {
		return false, ErrEditingDisabled
	}
	return true, nil
}
