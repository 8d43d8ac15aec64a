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

// compile-time check that *DB implements repository.IdentityRepository
var _ repository.IdentityRepository = (*DB)(nil)

// CreateLink binds an external identity to a local user. The UNIQUE
// (provider, external_id) constraint means a concurrent first-login for the
// same external account fails here with a conflict instead of creating a
// second link.
func (db *DB) CreateLink(ctx context.Context, link *model.IdentityLink) error {
	link.ID = xid.New().String()
	link.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO identity_links (id, provider, external_id, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.ID,
		link.Provider,
		link.ExternalID,
		link.UserID,
		link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("%s account is already connected", link.Provider))
		}
		return fmt.Errorf("sqlite: creating %s link: %w", link.Provider, err)
	}

	return nil
}

// GetLink looks up a link by (provider, external id).
// Returns apperror.ErrNotFound when no such link exists.
func (db *DB) GetLink(ctx context.Context, provider, externalID string) (*model.IdentityLink, error) {
	var l model.IdentityLink

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, external_id, user_id, created_at
		 FROM identity_links
		 WHERE provider = ? AND external_id = ?`,
		provider, externalID,
	).Scan(
		&l.ID,
		&l.Provider,
		&l.ExternalID,
		&l.UserID,
		&l.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("identity link", provider+":"+externalID)
		}
		return nil, fmt.Errorf("sqlite: getting %s link: %w", provider, err)
	}

	return &l, nil
}
