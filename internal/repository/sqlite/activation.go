package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// compile-time check that *DB implements repository.ActivationRepository
var _ repository.ActivationRepository = (*DB)(nil)

// CreateActivation inserts an activation record. Superseding a previous
// record for the same user is the service's responsibility (it deletes
// first) — this method just inserts.
func (db *DB) CreateActivation(ctx context.Context, activation *model.Activation) error {
	activation.ID = xid.New().String()
	activation.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activations (id, user_id, code, created_at)
		 VALUES (?, ?, ?, ?)`,
		activation.ID,
		activation.UserID,
		activation.Code,
		activation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating activation for user %s: %w", activation.UserID, err)
	}

	return nil
}

// GetActivationByCode looks up an activation by its full code string.
// Returns apperror.ErrNotFound when the code is unknown (or already consumed).
func (db *DB) GetActivationByCode(ctx context.Context, code string) (*model.Activation, error) {
	return db.getActivation(ctx, `WHERE code = ?`, code)
}

// GetActivationByUser returns the user's pending activation, if any.
// A NotFound result is how the services decide a user is fully activated.
func (db *DB) GetActivationByUser(ctx context.Context, userID string) (*model.Activation, error) {
	return db.getActivation(ctx, `WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, userID)
}

// DeleteActivation removes a single record by ID (the consume path).
func (db *DB) DeleteActivation(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM activations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting activation %s: %w", id, err)
	}
	return nil
}

// DeleteActivationsByUser removes every record for a user (the supersede
// path, before a fresh code is created).
func (db *DB) DeleteActivationsByUser(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM activations WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting activations for user %s: %w", userID, err)
	}
	return nil
}

func (db *DB) getActivation(ctx context.Context, where string, arg any) (*model.Activation, error) {
	var a model.Activation

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, code, created_at FROM activations `+where,
		arg,
	).Scan(
		&a.ID,
		&a.UserID,
		&a.Code,
		&a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("activation", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting activation: %w", err)
	}

	return &a, nil
}
