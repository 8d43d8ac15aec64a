package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// connectStore is the slice of the repository the connect flow needs.
type connectStore interface {
	repository.UserRepository
	repository.IdentityRepository
}

// ConnectService logs users in through an external identity provider,
// creating the local account and the provider link on first contact.
type ConnectService struct {
	store  connectStore
	tokens *TokenService
	logger *slog.Logger
}

// NewConnectService creates a ConnectService.
func NewConnectService(store connectStore, tokens *TokenService, logger *slog.Logger) *ConnectService {
	return &ConnectService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Connect exchanges a provider token for a local session.
//
// Resolution order:
//  1. Exchange the opaque token with the provider for a verified
//     (external id, email). Provider failures surface as upstream errors
//     carrying the provider's own message.
//  2. No email from the provider → reject; we cannot key the account.
//  3. An existing (provider, external id) link wins outright — the email on
//     file at the provider may have changed since first login, and the link
//     is the durable identity.
//  4. No link but a local user already owns that email → conflict. Silently
//     attaching an external identity to an existing password account would
//     let anyone who controls the provider account take over the local one.
//  5. Otherwise create a passwordless user and the link. If the link insert
//     fails after the user insert, the user row is orphaned — there is no
//     compensating rollback. The next connect attempt hits case 4 and the
//     orphan stays inert: no password, no tokens, no link.
//
// Either way the user ends up with a fresh access/refresh pair. Provider
// accounts skip email activation entirely — the provider already verified
// the address.
func (s *ConnectService) Connect(ctx context.Context, provider auth.ExternalProvider, externalToken string) (*TokenPair, error) {
	if strings.TrimSpace(externalToken) == "" {
		return nil, apperror.ValidationFailed("token", "Token is required")
	}

	profile, err := provider.Exchange(ctx, externalToken)
	if err != nil {
		return nil, apperror.Upstream(err.Error())
	}
	if profile.Email == "" {
		return nil, apperror.ValidationFailed("email",
			fmt.Sprintf("No email received from %s", provider.Name()))
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	user, err := s.resolveUser(ctx, provider.Name(), profile.ExternalID, email)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("external login",
		slog.String("provider", provider.Name()),
		slog.String("userID", user.ID),
	)
	return pair, nil
}

func (s *ConnectService) resolveUser(ctx context.Context, provider, externalID, email string) (*model.User, error) {
	link, err := s.store.GetLink(ctx, provider, externalID)
	if err == nil {
		user, err := s.store.GetUserByID(ctx, link.UserID)
		if err != nil {
			return nil, fmt.Errorf("service/connect: loading linked user %s: %w", link.UserID, err)
		}
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/connect: looking up %s link: %w", provider, err)
	}

	// First contact for this external account.
	taken, err := s.store.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/connect: checking email: %w", err)
	}
	if taken {
		return nil, apperror.Conflict(fmt.Sprintf("User with email %s already exists", email))
	}

	user := &model.User{Email: email} // no password — provider-only account
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/connect: creating user: %w", err)
	}

	if err := s.store.CreateLink(ctx, &model.IdentityLink{
		UserID:     user.ID,
		Provider:   provider,
		ExternalID: externalID,
	}); err != nil {
		// User row is now orphaned; see the method comment.
		return nil, fmt.Errorf("service/connect: creating %s link: %w", provider, err)
	}

	s.logger.Info("user created via external provider",
		slog.String("provider", provider),
		slog.String("userID", user.ID),
	)
	return user, nil
}
