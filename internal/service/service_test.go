package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/model"
)

// fakeStore is an in-memory implementation of every repository interface,
// guarded by one mutex so concurrency tests exercise real interleavings.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*model.User       // by ID
	tokens      map[string]bool              // "userID/kind/token"
	activations map[string]*model.Activation // by ID
	links       map[string]*model.IdentityLink
	notes       []model.Note
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*model.User),
		tokens:      make(map[string]bool),
		activations: make(map[string]*model.Activation),
		links:       make(map[string]*model.IdentityLink),
	}
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func tokenKey(userID string, kind model.TokenKind, token string) string {
	return userID + "/" + string(kind) + "/" + token
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict(fmt.Sprintf("User with email %s already exists", user.Email))
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	clone := *u
	return &clone, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) EmailTaken(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) AddToken(_ context.Context, userID string, kind model.TokenKind, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenKey(userID, kind, token)] = true
	return nil
}

func (f *fakeStore) RemoveToken(_ context.Context, userID string, kind model.TokenKind, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tokenKey(userID, kind, token)
	if !f.tokens[key] {
		return false, nil
	}
	delete(f.tokens, key)
	return true, nil
}

func (f *fakeStore) RemoveAllTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID + "/"
	for key := range f.tokens {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(f.tokens, key)
		}
	}
	return nil
}

func (f *fakeStore) HasToken(_ context.Context, userID string, kind model.TokenKind, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[tokenKey(userID, kind, token)], nil
}

func (f *fakeStore) tokenCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID + "/"
	n := 0
	for key := range f.tokens {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeStore) CreateActivation(_ context.Context, activation *model.Activation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	activation.ID = f.id()
	activation.CreatedAt = time.Now()
	clone := *activation
	f.activations[activation.ID] = &clone
	return nil
}

func (f *fakeStore) GetActivationByCode(_ context.Context, code string) (*model.Activation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.activations {
		if a.Code == code {
			clone := *a
			return &clone, nil
		}
	}
	return nil, apperror.NotFound("activation", code)
}

func (f *fakeStore) GetActivationByUser(_ context.Context, userID string) (*model.Activation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *model.Activation
	for _, a := range f.activations {
		if a.UserID == userID && (newest == nil || a.CreatedAt.After(newest.CreatedAt)) {
			newest = a
		}
	}
	if newest == nil {
		return nil, apperror.NotFound("activation", userID)
	}
	clone := *newest
	return &clone, nil
}

func (f *fakeStore) DeleteActivation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.activations, id)
	return nil
}

func (f *fakeStore) DeleteActivationsByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.activations {
		if a.UserID == userID {
			delete(f.activations, id)
		}
	}
	return nil
}

func (f *fakeStore) CreateLink(_ context.Context, link *model.IdentityLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := link.Provider + "/" + link.ExternalID
	if _, ok := f.links[key]; ok {
		return apperror.Conflict("identity already linked")
	}
	link.ID = f.id()
	link.CreatedAt = time.Now()
	clone := *link
	f.links[key] = &clone
	return nil
}

func (f *fakeStore) GetLink(_ context.Context, provider, externalID string) (*model.IdentityLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[provider+"/"+externalID]
	if !ok {
		return nil, apperror.NotFound("identity link", externalID)
	}
	clone := *l
	return &clone, nil
}

func (f *fakeStore) CreateNote(_ context.Context, note *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	note.ID = f.id()
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeStore) ListNotesByUser(_ context.Context, userID string) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Note
	for i := len(f.notes) - 1; i >= 0; i-- {
		if f.notes[i].UserID == userID {
			out = append(out, f.notes[i])
		}
	}
	return out, nil
}

// fakeMailer records sends on a channel so tests can wait for the async
// notification goroutine instead of sleeping.
type fakeMailer struct {
	sent chan string // "to|subject"
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan string, 8)}
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.sent <- to + "|" + subject
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.NewSigner("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

func newTestTokenService(t *testing.T, store *fakeStore) *TokenService {
	t.Helper()
	return NewTokenService(store, newTestSigner(t), 10*time.Minute, 7*24*time.Hour, testLogger())
}

func storeTestUser(t *testing.T, store *fakeStore, email, passwordHash string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: passwordHash}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to store test user: %v", err)
	}
	return user
}
