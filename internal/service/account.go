package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// MinPasswordLength matches what existing clients were built against.
const MinPasswordLength = 5

// AccountService owns the account lifecycle: registration, login, password
// change, and the activation-adjacent flows (resend, activate, email
// lookup). It orchestrates the credential store, token service, and
// activation service; it holds no state of its own.
type AccountService struct {
	users       repository.UserRepository
	passwords   *auth.PasswordService
	tokens      *TokenService
	activations *ActivationService
	logger      *slog.Logger
}

// NewAccountService creates an AccountService with all dependencies.
func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *TokenService,
	activations *ActivationService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:       users,
		passwords:   passwords,
		tokens:      tokens,
		activations: activations,
		logger:      logger,
	}
}

// Register creates a new, not-yet-activated account and dispatches the
// activation email.
//
// The password is hashed exactly once, here, before the user ever reaches
// the repository — there is no pre-save hook that could re-hash an
// already-hashed value on an unrelated update.
func (s *AccountService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	// The pre-check gives the friendly message; the UNIQUE constraint in
	// the repository still catches a concurrent duplicate registration.
	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking email: %w", err)
	}
	if taken {
		return nil, apperror.ValidationFailed("email", fmt.Sprintf("User with email %s already exists", email))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password is too long")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", fmt.Sprintf("User with email %s already exists", email))
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	activation, err := s.activations.Create(ctx, user.ID)
	if err != nil {
		// The account exists; the user can still ask for a resend.
		s.logger.Error("failed to create activation after registration",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		s.activations.SendNotification(activation, user.Email)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login verifies credentials and issues a token pair.
//
// Every credential failure — unknown email, wrong password — comes back as
// the same "Invalid credentials" so callers can't probe which emails are
// registered through the login endpoint. Not-yet-activated accounts are the
// one distinguishable case; clients need it to prompt for the email link.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "Password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Auth("Invalid credentials")
		}
		return nil, fmt.Errorf("service/account: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Auth("Invalid credentials")
	}

	pending, err := s.activations.Pending(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.Auth("Account is not activated")
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return pair, nil
}

// Logout revokes the presented access token. Idempotent — logging out twice
// with the same token succeeds both times.
func (s *AccountService) Logout(ctx context.Context, user *model.User, accessToken string) error {
	if err := s.tokens.Revoke(ctx, user.ID, model.KindAccess, accessToken); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.String("userID", user.ID))
	return nil
}

// ChangePassword verifies the old password, stores the new hash, and kills
// every outstanding session token — including the one that authorised this
// request. Whoever changed the password must log in again; so must anyone
// who had stolen a token.
func (s *AccountService) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	if err := s.passwords.Verify(user.PasswordHash, oldPassword); err != nil {
		return apperror.Auth("Wrong password")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("new_password", "Password is too long")
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/account: updating password: %w", err)
	}

	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("password changed, all sessions revoked", slog.String("userID", user.ID))
	return nil
}

// ResendActivation generates and mails a fresh activation code, superseding
// the previous one.
func (s *AccountService) ResendActivation(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("email", fmt.Sprintf("No user with email %s", email))
		}
		return fmt.Errorf("service/account: looking up user: %w", err)
	}

	pending, err := s.activations.Pending(ctx, user.ID)
	if err != nil {
		return err
	}
	if !pending {
		return apperror.ValidationFailed("email", "Account is already activated")
	}

	activation, err := s.activations.Create(ctx, user.ID)
	if err != nil {
		return err
	}
	s.activations.SendNotification(activation, user.Email)

	return nil
}

// Activate consumes an activation code, making the account login-eligible.
func (s *AccountService) Activate(ctx context.Context, code string) error {
	return s.activations.Consume(ctx, code)
}

// EmailExists reports whether any account owns the email. This endpoint is
// public by contract — unlike login it deliberately reveals registration
// status (signup forms use it for inline feedback).
func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, apperror.ValidationFailed("email", "Email is required")
	}

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return false, fmt.Errorf("service/account: checking email: %w", err)
	}
	return taken, nil
}

// normalizeEmail trims, lowercases, and validates an address. The returned
// string is the canonical form everything downstream stores and compares.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperror.ValidationFailed("email", "Enter a valid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	return nil
}
