package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/service"
)

// NoteHandler exposes the /notes routes. Both run behind the auth guard —
// there is no anonymous notes access.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

// HandleCreate saves a note for the authenticated user.
//
// HTTP: POST /notes {text} (access_token header) → 200 echoed note
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal error occurred"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	note, err := h.notes.Create(r.Context(), user, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// HandleList returns the authenticated user's notes, newest first.
//
// HTTP: GET /notes (access_token header) → 200 [note, ...]
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal error occurred"})
		return
	}

	notes, err := h.notes.List(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}
