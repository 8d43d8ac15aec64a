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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user.
//
// The caller is responsible for having normalised the email (lowercased,
// trimmed) and hashed the password. The UNIQUE NOCASE constraint on email
// turns a concurrent duplicate registration into a constraint error here,
// which we surface as a conflict rather than a bare SQL error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("User with email %s already exists", user.Email))
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email. The COLLATE NOCASE column makes
// the match case-insensitive regardless of how the email is stored.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// EmailTaken reports whether any user owns the given email.
func (db *DB) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email %s: %w", email, err)
	}
	return count > 0, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (db *DB) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}

	return nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &u, nil
}
