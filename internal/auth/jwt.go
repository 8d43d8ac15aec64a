// Package auth provides the cryptographic half of session handling: JWT
// signing/verification, bcrypt password hashing, the HTTP request guard,
// and the external identity providers.
//
// The JWT layer here is deliberately stateless — it knows nothing about the
// database. A token that verifies cryptographically is still only HALF
// authenticated: the token service additionally requires the literal
// (kind, token) pair to be present in the user's stored session collection.
// The signature proves who minted the token; the stored tuple proves it has
// not been revoked and is being presented as the kind it was issued as.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/notes-api/internal/model"
)

const issuer = "notes-api"

// ErrTokenExpired is returned by Verify when the token's signature checks
// out but its embedded expiry has passed. Callers get the decoded claims
// alongside this error so the stale credential can be purged from its
// owner's session collection.
var ErrTokenExpired = errors.New("auth: token expired")

// Signer signs and verifies session tokens.
//
// It holds the HMAC secret key used for both operations. The secret should
// be at least 32 bytes of random data in production:
// JWT_SECRET=$(openssl rand -hex 32)
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer with the given secret.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// sessionClaims is the JWT payload: the standard registered claims plus the
// token kind. "sub" carries the internal user ID.
//
// Embedding the kind in the signed payload means a token always remembers
// what it was issued as — an access token presented to the refresh endpoint
// decodes as kind "access" and fails the stored-tuple check.
type sessionClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Sign creates a signed token of the given kind for userID, expiring after ttl.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment where signer and verifier share one secret.
func (s *Signer) Sign(userID string, kind model.TokenKind, ttl time.Duration) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("auth: invalid token kind %q", kind)
	}

	now := time.Now()
	c := sessionClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token string, returning the user ID and kind
// it encodes.
//
// Validation performed by the jwt library: signature, expiry, issuer, and
// algorithm (jwt.WithValidMethods prevents algorithm-confusion attacks
// where an attacker swaps HS256 for "none").
//
// On ErrTokenExpired the returned userID and kind are still populated from
// the decoded claims — the signature was fine, only the clock ran out — so
// the caller can purge the stale token from the owner's record. Any other
// failure returns empty values.
func (s *Signer) Verify(tokenStr string) (string, model.TokenKind, error) {
	var c sessionClaims

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && c.Subject != "" {
			// Claims are decoded before validation, so on a pure expiry
			// failure they identify the owner.
			return c.Subject, model.TokenKind(c.Kind), ErrTokenExpired
		}
		return "", "", fmt.Errorf("auth: invalid token: %w", err)
	}

	if !token.Valid || c.Subject == "" {
		return "", "", fmt.Errorf("auth: invalid token claims")
	}

	kind := model.TokenKind(c.Kind)
	if !kind.Valid() {
		return "", "", fmt.Errorf("auth: token has unknown kind %q", c.Kind)
	}

	return c.Subject, kind, nil
}
