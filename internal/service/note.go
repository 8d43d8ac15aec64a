package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notes-api/internal/apperror"
	"github.com/sakif/notes-api/internal/model"
	"github.com/sakif/notes-api/internal/repository"
)

// MaxNoteLength keeps a single note to something sane.
const MaxNoteLength = 10000

// NoteService handles the notes resource. Ownership is the entire
// permission model: every operation is scoped to the authenticated user the
// handler passes in.
type NoteService struct {
	notes  repository.NoteRepository
	logger *slog.Logger
}

// NewNoteService creates a NoteService.
func NewNoteService(notes repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		notes:  notes,
		logger: logger,
	}
}

// Create validates and saves a new note for the user.
func (s *NoteService) Create(ctx context.Context, user *model.User, text string) (*model.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "Text is required")
	}
	if len(text) > MaxNoteLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("Note must be %d characters or less", MaxNoteLength))
	}

	note := &model.Note{
		UserID: user.ID,
		Text:   text,
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("service/note: creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("userID", user.ID),
	)
	return note, nil
}

// List returns the user's notes, newest first.
func (s *NoteService) List(ctx context.Context, user *model.User) ([]model.Note, error) {
	notes, err := s.notes.ListNotesByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/note: listing notes: %w", err)
	}
	return notes, nil
}
