// Package repository defines the storage ports the services depend on.
//
// The services only ever see these interfaces — the SQLite implementation
// lives in repository/sqlite and is wired in by the server. Tests substitute
// in-memory fakes.
//
// The session-token methods are deliberately narrow: "add this row",
// "remove exactly this row", "remove all rows for this user", "is this row
// present". Each maps to a single targeted statement in the store, which is
// what keeps concurrent logout / refresh / password-change requests from
// racing each other through read-modify-write cycles on a whole user record.
package repository

import (
	"context"

	"github.com/sakif/notes-api/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail matches case-insensitively on the stored (lowercased) email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	// UpdatePassword replaces the stored hash. Callers hash before calling —
	// plaintext never reaches the repository.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type SessionRepository interface {
	AddToken(ctx context.Context, userID string, kind model.TokenKind, token string) error
	// RemoveToken deletes exactly the matching (user, kind, token) row and
	// reports whether a row was actually removed. Removing an absent token
	// is not an error — the false return lets rotation detect that a
	// concurrent request already consumed the token.
	RemoveToken(ctx context.Context, userID string, kind model.TokenKind, token string) (bool, error)
	RemoveAllTokens(ctx context.Context, userID string) error
	HasToken(ctx context.Context, userID string, kind model.TokenKind, token string) (bool, error)
}

type ActivationRepository interface {
	// CreateActivation inserts the record as-is; superseding an existing
	// record for the same user is the service's job (delete then create).
	CreateActivation(ctx context.Context, activation *model.Activation) error
	GetActivationByCode(ctx context.Context, code string) (*model.Activation, error)
	GetActivationByUser(ctx context.Context, userID string) (*model.Activation, error)
	DeleteActivation(ctx context.Context, id string) error
	DeleteActivationsByUser(ctx context.Context, userID string) error
}

type IdentityRepository interface {
	CreateLink(ctx context.Context, link *model.IdentityLink) error
	GetLink(ctx context.Context, provider, externalID string) (*model.IdentityLink, error)
}

type NoteRepository interface {
	CreateNote(ctx context.Context, note *model.Note) error
	ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error)
}
