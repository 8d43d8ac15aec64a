package model

import "time"

// TokenKind distinguishes the two session credentials we issue.
//
// An access token is short-lived and authorises individual API calls.
// A refresh token is long-lived and is accepted by exactly one operation:
// minting a fresh access/refresh pair. The kind is embedded in the signed
// token AND stored alongside it in the database — a token only resolves when
// the literal (kind, token) pair is still on record, so a validly signed
// access token can never stand in for a refresh token, and a revoked token
// stays dead even though its signature remains valid until expiry.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Valid reports whether k is one of the two recognised kinds.
func (k TokenKind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// SessionToken is one live credential in a user's session collection.
type SessionToken struct {
	UserID    string    `json:"-"`
	Kind      TokenKind `json:"kind"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}
