package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// compile-time check that *DB implements repository.NoteRepository
var _ repository.NoteRepository = (*DB)(nil)

// CreateNote inserts a new note. ID and timestamps are filled in here, so
// after the call the caller's struct carries the canonical record.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	note.ID = xid.New().String()

	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		note.ID,
		note.UserID,
		note.Text,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	return nil
}

// ListNotesByUser returns the user's notes, newest first.
func (db *DB) ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, text, created_at, updated_at
		 FROM notes
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes for user %s: %w", userID, err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Text, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}
