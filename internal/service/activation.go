package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/mail"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

const (
	codeAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSecretLength = 30
)

// ActivationService manages email activation codes: single-use, time-limited
// proofs that the registrant controls the address they signed up with.
//
// A code looks like "k3J...x9Q_1735689600" — a random 30-character secret,
// an underscore, and the expiry as epoch seconds. Carrying the expiry inside
// the code keeps validation a pure string operation.
//
// A user with a pending activation record is not yet login-eligible;
// consuming the code deletes the record, which IS the act of activation.
type ActivationService struct {
	activations repository.ActivationRepository
	mailer      mail.Mailer
	lifetime    time.Duration
	baseURL     string
	logger      *slog.Logger
}

// NewActivationService creates an ActivationService.
func NewActivationService(activations repository.ActivationRepository, mailer mail.Mailer, lifetime time.Duration, baseURL string, logger *slog.Logger) *ActivationService {
	return &ActivationService{
		activations: activations,
		mailer:      mailer,
		lifetime:    lifetime,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// Create generates a fresh activation record for the user, superseding any
// existing one.
//
// The delete-then-insert is not transactional: two concurrent creates for
// the same user can transiently leave two live records. That window is
// accepted — both codes would be genuine and single-use, so nothing worse
// than a dead link in the older email comes of it.
func (s *ActivationService) Create(ctx context.Context, userID string) (*model.Activation, error) {
	if err := s.activations.DeleteActivationsByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/activation: superseding records for user %s: %w", userID, err)
	}

	secret, err := randomString(codeSecretLength)
	if err != nil {
		return nil, fmt.Errorf("service/activation: generating code: %w", err)
	}
	expiry := time.Now().Add(s.lifetime).Unix()

	activation := &model.Activation{
		UserID: userID,
		Code:   fmt.Sprintf("%s_%d", secret, expiry),
	}
	if err := s.activations.CreateActivation(ctx, activation); err != nil {
		return nil, fmt.Errorf("service/activation: storing record: %w", err)
	}

	return activation, nil
}

// IsValid reports whether the code's embedded expiry is still in the
// future. Strictly less-than: a code presented at its exact expiry second
// is already dead.
func IsValid(activation *model.Activation) bool {
	expiry, ok := codeExpiry(activation.Code)
	return ok && time.Now().Unix() < expiry
}

// Consume looks up and redeems an activation code.
//
//   - unknown code (never issued, or already consumed): invalid-code error
//   - known but expired: expired-code error; the record is NOT deleted, so
//     a later resend can supersede it cleanly
//   - known and valid: the record is deleted and the user is activated
func (s *ActivationService) Consume(ctx context.Context, code string) error {
	activation, err := s.activations.GetActivationByCode(ctx, code)
	if err != nil {
		return apperror.Auth("Invalid activation code")
	}

	if !IsValid(activation) {
		return apperror.Auth("Activation code has expired")
	}

	if err := s.activations.DeleteActivation(ctx, activation.ID); err != nil {
		return fmt.Errorf("service/activation: consuming record %s: %w", activation.ID, err)
	}

	s.logger.Info("account activated", slog.String("userID", activation.UserID))
	return nil
}

// Pending reports whether the user still has an activation record — i.e.
// registered but not yet activated. Record absence is the definition of
// "activated": consume deletes, and provider-created accounts never get a
// record in the first place.
func (s *ActivationService) Pending(ctx context.Context, userID string) (bool, error) {
	_, err := s.activations.GetActivationByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service/activation: checking user %s: %w", userID, err)
	}
	return true, nil
}

// SendNotification dispatches the activation email on its own goroutine.
// The surrounding registration or resend has already committed, so delivery
// failure must not fail it — the error is logged and nothing else.
func (s *ActivationService) SendNotification(activation *model.Activation, email string) {
	link := fmt.Sprintf("%s/users/activate/%s", s.baseURL, activation.Code)
	body := fmt.Sprintf(
		"Welcome!\n\nActivate your account by opening the link below:\n\n%s\n\nThe link is valid for %s.\n",
		link, s.lifetime,
	)

	go func() {
		// Fresh context: the HTTP request that triggered this is about to
		// finish and would cancel its own.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.mailer.Send(ctx, email, "Activate your account", body); err != nil {
			s.logger.Error("activation mail dispatch failed",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// codeExpiry parses the epoch-seconds suffix out of a code.
func codeExpiry(code string) (int64, bool) {
	parts := strings.SplitN(code, "_", 2)
	if len(parts) != 2 {
		return 0, false
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return expiry, true
}

// randomString draws length characters from the code alphabet using
// crypto/rand. Activation codes are bearer secrets; math/rand would make
// them guessable to anyone who can observe a few of them.
func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
