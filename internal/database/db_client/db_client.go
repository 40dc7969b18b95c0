package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schema is applied on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id                        text PRIMARY KEY,
		teacher_id                text NOT NULL,
		students                  jsonb NOT NULL DEFAULT '[]'::jsonb,
		student_cursor_enabled    boolean NOT NULL DEFAULT true,
		student_edit_code_enabled boolean NOT NULL DEFAULT true,
		student_selection_enabled boolean NOT NULL DEFAULT true,
		completed                 boolean NOT NULL DEFAULT false,
		task_id                   text,
		language                  text NOT NULL DEFAULT 'javascript',
		created_at                timestamptz NOT NULL DEFAULT now(),
		updated_at                timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS rooms_teacher_idx ON rooms (teacher_id)`,
	`CREATE INDEX IF NOT EXISTS rooms_students_idx ON rooms USING gin (students)`,
	`CREATE TABLE IF NOT EXISTS room_documents (
		room_id    text PRIMARY KEY REFERENCES rooms(id) ON DELETE CASCADE,
		state      bytea NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// Open connects to Postgres and makes sure the room tables exist.
func Open(ctx context.Context, host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}
