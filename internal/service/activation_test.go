package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
)

func newTestActivationService(store *fakeStore, mailer *fakeMailer, lifetime time.Duration) *ActivationService {
	return NewActivationService(store, mailer, lifetime, "http://localhost:8080", testLogger())
}

func TestActivationCreate(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivationService(store, newFakeMailer(), 24*time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")

	activation, err := svc.Create(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	parts := strings.SplitN(activation.Code, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("Code = %q, want <secret>_<expiry>", activation.Code)
	}
	if len(parts[0]) != 30 {
		t.Errorf("secret length = %d, want 30", len(parts[0]))
	}
	if !IsValid(activation) {
		t.Error("freshly created activation is not valid")
	}
}

func TestActivationCreate_SupersedesPrevious(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivationService(store, newFakeMailer(), 24*time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	first, err := svc.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := svc.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The first code is gone: consuming it must fail, the second works.
	if err := svc.Consume(ctx, first.Code); !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("Consume(superseded) error = %v, want ErrAuth", err)
	}
	if err := svc.Consume(ctx, second.Code); err != nil {
		t.Errorf("Consume(current) error = %v", err)
	}
}

func TestActivationConsume_SingleUse(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivationService(store, newFakeMailer(), 24*time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	activation, err := svc.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Consume(ctx, activation.Code); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if err := svc.Consume(ctx, activation.Code); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("second Consume() error = %v, want ErrAuth", err)
	}
}

func TestActivationConsume_Expired(t *testing.T) {
	store := newFakeStore()
	// Negative lifetime mints codes that are already expired.
	svc := newTestActivationService(store, newFakeMailer(), -time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	activation, err := svc.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Consume(ctx, activation.Code); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Consume(expired) error = %v, want ErrAuth", err)
	}

	// An expired record stays on file, so the account still reads as
	// pending and a resend can supersede it.
	pending, err := svc.Pending(ctx, user.ID)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if !pending {
		t.Error("Pending() = false, expired record should be retained")
	}
}

func TestActivationConsume_UnknownCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivationService(store, newFakeMailer(), 24*time.Hour)

	err := svc.Consume(context.Background(), "never-issued_1700000000")
	if !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Consume() error = %v, want ErrAuth", err)
	}
}

func TestActivationPending(t *testing.T) {
	store := newFakeStore()
	svc := newTestActivationService(store, newFakeMailer(), 24*time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	pending, err := svc.Pending(ctx, user.ID)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if pending {
		t.Error("Pending() = true for a user with no record")
	}

	activation, err := svc.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	pending, err = svc.Pending(ctx, user.ID)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if !pending {
		t.Error("Pending() = false right after Create()")
	}

	if err := svc.Consume(ctx, activation.Code); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	pending, err = svc.Pending(ctx, user.ID)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if pending {
		t.Error("Pending() = true after the code was consumed")
	}
}

func TestSendNotification(t *testing.T) {
	store := newFakeStore()
	mailer := newFakeMailer()
	svc := newTestActivationService(store, mailer, 24*time.Hour)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")

	activation, err := svc.Create(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	svc.SendNotification(activation, user.Email)

	select {
	case sent := <-mailer.sent:
		if !strings.HasPrefix(sent, "kiryu@gmail.com|") {
			t.Errorf("mail sent to %q, want kiryu@gmail.com", sent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no mail dispatched within 2s")
	}
}

func TestIsValid_Malformed(t *testing.T) {
	for _, code := range []string{"", "nounderscore", "secret_notanumber", "_"} {
		if IsValid(&model.Activation{Code: code}) {
			t.Errorf("IsValid(%q) = true, want false", code)
		}
	}
}
