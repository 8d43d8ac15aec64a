package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// AddToken appends a credential to the user's session collection.
func (db *DB) AddToken(ctx context.Context, userID string, kind model.TokenKind, token string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO session_tokens (user_id, kind, token, created_at)
		 VALUES (?, ?, ?, ?)`,
		userID, string(kind), token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding %s token for user %s: %w", kind, userID, err)
	}
	return nil
}

// RemoveToken deletes exactly the matching (user, kind, token) row.
//
// The single-statement DELETE is the atomic "pull this exact token" update
// the whole revocation design leans on: two concurrent requests can both run
// it, but only one observes rowsAffected == 1. Callers that need
// first-wins semantics (refresh rotation) branch on the bool; callers that
// are idempotent by contract (logout) ignore it.
func (db *DB) RemoveToken(ctx context.Context, userID string, kind model.TokenKind, token string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE user_id = ? AND kind = ? AND token = ?`,
		userID, string(kind), token,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing %s token for user %s: %w", kind, userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// RemoveAllTokens clears the user's entire session collection. Used on
// password change — every outstanding credential dies at once.
func (db *DB) RemoveAllTokens(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing all tokens for user %s: %w", userID, err)
	}
	return nil
}

// HasToken reports whether the literal (user, kind, token) tuple is live.
func (db *DB) HasToken(ctx context.Context, userID string, kind model.TokenKind, token string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_tokens WHERE user_id = ? AND kind = ? AND token = ?`,
		userID, string(kind), token,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s token for user %s: %w", kind, userID, err)
	}
	return count > 0, nil
}
