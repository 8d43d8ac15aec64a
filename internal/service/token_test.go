package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
)

func TestIssueAndResolve(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	token, expires, err := tokens.Issue(ctx, user, model.KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !expires.After(time.Now()) {
		t.Error("Issue() returned an expiry in the past")
	}

	resolved, err := tokens.Resolve(ctx, model.KindAccess, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("Resolve() user ID = %q, want %q", resolved.ID, user.ID)
	}
}

func TestResolve_WrongKind(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	// A validly signed access token presented where a refresh token is
	// expected must be rejected: no (refresh, token) row exists.
	access, _, err := tokens.Issue(ctx, user, model.KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := tokens.Resolve(ctx, model.KindRefresh, access); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Resolve() error = %v, want ErrAuth", err)
	}
}

func TestResolve_RevokedToken(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	token, _, err := tokens.Issue(ctx, user, model.KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := tokens.Revoke(ctx, user.ID, model.KindAccess, token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	// The signature is still valid; only the stored row is gone.
	if _, err := tokens.Resolve(ctx, model.KindAccess, token); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Resolve() after revoke error = %v, want ErrAuth", err)
	}
}

func TestResolve_ExpiredTokenPurged(t *testing.T) {
	store := newFakeStore()
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	// Pre-expired access token, stored as a live row the way a stale
	// session would leave it.
	signer := newTestSigner(t)
	token, err := signer.Sign(user.ID, model.KindAccess, -time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := store.AddToken(ctx, user.ID, model.KindAccess, token); err != nil {
		t.Fatalf("AddToken() error = %v", err)
	}

	tokens := NewTokenService(store, signer, 10*time.Minute, 7*24*time.Hour, testLogger())
	if _, err := tokens.Resolve(ctx, model.KindAccess, token); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Resolve() error = %v, want ErrAuth", err)
	}

	// First presentation of an expired token must have removed its row.
	has, err := store.HasToken(ctx, user.ID, model.KindAccess, token)
	if err != nil {
		t.Fatalf("HasToken() error = %v", err)
	}
	if has {
		t.Error("expired token row survived Resolve()")
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	token, _, err := tokens.Issue(ctx, user, model.KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := tokens.Revoke(ctx, user.ID, model.KindAccess, token); err != nil {
			t.Fatalf("Revoke() #%d error = %v", i+1, err)
		}
	}
}

func TestRevokeAll(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	pair, err := tokens.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	if err := tokens.RevokeAll(ctx, user.ID); err != nil {
		t.Fatalf("RevokeAll() error = %v", err)
	}

	if _, err := tokens.Resolve(ctx, model.KindAccess, pair.AccessToken); !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("Resolve(access) after RevokeAll error = %v, want ErrAuth", err)
	}
	if _, err := tokens.Resolve(ctx, model.KindRefresh, pair.RefreshToken); !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("Resolve(refresh) after RevokeAll error = %v, want ErrAuth", err)
	}
}

func TestRotateRefresh(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	pair, err := tokens.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	rotated, err := tokens.RotateRefresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RotateRefresh() error = %v", err)
	}

	// The new pair works; the consumed refresh token does not.
	if _, err := tokens.Resolve(ctx, model.KindRefresh, rotated.RefreshToken); err != nil {
		t.Errorf("Resolve(new refresh) error = %v", err)
	}
	if _, err := tokens.RotateRefresh(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("replayed RotateRefresh() error = %v, want ErrAuth", err)
	}

	// The pre-rotation access token is untouched by rotation.
	if _, err := tokens.Resolve(ctx, model.KindAccess, pair.AccessToken); err != nil {
		t.Errorf("Resolve(old access) error = %v", err)
	}
}

// TestRotateRefresh_SingleWinner hammers one refresh token from many
// goroutines. Exactly one rotation may succeed; every loser must get the
// same auth error a replayed token gets.
func TestRotateRefresh_SingleWinner(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")
	ctx := context.Background()

	pair, err := tokens.IssuePair(ctx, user)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	const workers = 16
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tokens.RotateRefresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, apperror.ErrAuth) {
			t.Errorf("loser error = %v, want ErrAuth", err)
		}
	}
	if wins != 1 {
		t.Errorf("rotations succeeded = %d, want exactly 1", wins)
	}
}

func TestIssue_InvalidKind(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)
	user := storeTestUser(t, store, "kiryu@gmail.com", "hash")

	_, _, err := tokens.Issue(context.Background(), user, model.TokenKind("session"))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Issue() error = %v, want ErrValidation", err)
	}
}

func TestResolve_Garbage(t *testing.T) {
	store := newFakeStore()
	tokens := newTestTokenService(t, store)

	_, err := tokens.Resolve(context.Background(), model.KindAccess, "not-a-jwt")
	if !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("Resolve() error = %v, want ErrAuth", err)
	}
}
