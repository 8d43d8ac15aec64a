// Package service contains the business logic layer: token issuance and
// revocation, account lifecycle, activation codes, external identity
// linking, and notes. Handlers parse HTTP and delegate here; repositories
// do the SQL. Nothing in this package knows about status codes or requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// tokenStore is the slice of the repository the token service needs: users
// plus their session rows.
type tokenStore interface {
	repository.UserRepository
	repository.SessionRepository
}

// TokenService issues, resolves, and revokes session tokens.
//
// The design splits authentication into two independent checks:
//
//  1. The signature (auth.Signer) proves WE minted the token and that its
//     embedded user ID, kind, and expiry are untampered.
//  2. The stored (kind, token) row proves the credential is still LIVE —
//     not logged out, not rotated away, not killed by a password change —
//     and is being presented as the kind it was issued as.
//
// Check 2 is what makes logout and rotation effective even though the token
// itself stays cryptographically valid until its embedded expiry, and what
// stops a validly signed access token from being replayed as a refresh
// token: the row for it simply has the wrong kind.
type TokenService struct {
	store      tokenStore
	signer     *auth.Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewTokenService creates a TokenService. Lifetimes come from the Config
// struct built at startup — this service never reads the environment.
func NewTokenService(store tokenStore, signer *auth.Signer, accessTTL, refreshTTL time.Duration, logger *slog.Logger) *TokenService {
	return &TokenService{
		store:      store,
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// TokenPair is what login, refresh, and external connect hand back to the
// client. Expires is the access token's expiry as epoch seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
}

// Issue signs a new token of the given kind for the user, appends it to the
// user's session collection, and returns it with its expiry.
func (s *TokenService) Issue(ctx context.Context, user *model.User, kind model.TokenKind) (string, time.Time, error) {
	if !kind.Valid() {
		return "", time.Time{}, apperror.ValidationFailed("kind", fmt.Sprintf("invalid token kind %q", kind))
	}

	ttl := s.accessTTL
	if kind == model.KindRefresh {
		ttl = s.refreshTTL
	}
	expires := time.Now().Add(ttl)

	token, err := s.signer.Sign(user.ID, kind, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service/token: signing %s token: %w", kind, err)
	}

	if err := s.store.AddToken(ctx, user.ID, kind, token); err != nil {
		return "", time.Time{}, fmt.Errorf("service/token: storing %s token: %w", kind, err)
	}

	return token, expires, nil
}

// IssuePair issues a fresh access+refresh pair for the user.
func (s *TokenService) IssuePair(ctx context.Context, user *model.User) (*TokenPair, error) {
	access, expires, err := s.Issue(ctx, user, model.KindAccess)
	if err != nil {
		return nil, err
	}

	refresh, _, err := s.Issue(ctx, user, model.KindRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Expires:      expires.Unix(),
	}, nil
}

// Resolve maps a presented token of the expected kind back to its owner.
//
// Failure modes, all surfaced as AuthError:
//   - expired: the stale row is purged from the owner's session collection
//     as a side effect before the error is returned — expired tokens clean
//     themselves up on first presentation, no background sweeper needed
//   - bad signature / undecodable: invalid token
//   - decoded fine but the (expected kind, token) row is absent: invalid
//     token — this one case covers "revoked", "rotated away", and "right
//     signature, wrong kind" identically, which is deliberate: the caller
//     learns nothing about which it was
func (s *TokenService) Resolve(ctx context.Context, kind model.TokenKind, token string) (*model.User, error) {
	userID, tokenKind, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) && userID != "" {
			if _, purgeErr := s.store.RemoveToken(ctx, userID, tokenKind, token); purgeErr != nil {
				s.logger.Error("failed to purge expired token",
					slog.String("userID", userID),
					slog.String("error", purgeErr.Error()),
				)
			}
			return nil, apperror.Auth("Token expired")
		}
		return nil, apperror.Auth("Invalid token")
	}

	live, err := s.store.HasToken(ctx, userID, kind, token)
	if err != nil {
		return nil, fmt.Errorf("service/token: checking %s token: %w", kind, err)
	}
	if !live {
		return nil, apperror.Auth("Invalid token")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/token: loading user %s: %w", userID, err)
	}

	return user, nil
}

// Revoke removes exactly the matching (kind, token) credential. Revoking a
// token that is already gone is not an error — logout is idempotent.
func (s *TokenService) Revoke(ctx context.Context, userID string, kind model.TokenKind, token string) error {
	if _, err := s.store.RemoveToken(ctx, userID, kind, token); err != nil {
		return fmt.Errorf("service/token: revoking %s token: %w", kind, err)
	}
	return nil
}

// RevokeAll clears the user's entire session collection.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.store.RemoveAllTokens(ctx, userID); err != nil {
		return fmt.Errorf("service/token: revoking all tokens: %w", err)
	}
	return nil
}

// RotateRefresh exchanges a refresh token for a brand-new access+refresh
// pair, invalidating the presented token.
//
// Ordering matters: the old token is revoked BEFORE the new pair is issued.
// If issuance then fails the client is left with no valid refresh token — an
// inconvenience — but the alternative (issue first, revoke after) could
// leave BOTH pairs valid on a partial failure, which is a security hole.
//
// The revoke step demands the atomic delete actually removed a row. Two
// concurrent rotations with the same token both pass Resolve, but only one
// DELETE wins; the loser fails here with the same invalid-token error a
// replayed token gets.
func (s *TokenService) RotateRefresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	user, err := s.Resolve(ctx, model.KindRefresh, refreshToken)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveToken(ctx, user.ID, model.KindRefresh, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("service/token: consuming refresh token: %w", err)
	}
	if !removed {
		// A concurrent rotation got here first.
		return nil, apperror.Auth("Invalid token")
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", slog.String("userID", user.ID))
	return pair, nil
}
