package handler

// RESPONSE HELPERS:
// Every error leaving this API has the same one-field shape:
//
//	{"error": "Invalid credentials"}
//
// That body is a contract with existing clients, which is why there is no
// machine-readable code field or per-field detail — the message IS the
// payload. Success bodies vary per endpoint and are written with writeJSON.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/notes-api/internal/apperror"
)

// errorResponse is the uniform failure body.
type errorResponse struct {
	Error string `json:"error"`
}

// successResponse is the body for endpoints that only acknowledge.
type successResponse struct {
	Success bool `json:"success"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be set before the first body byte — Encode writes the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess sends the standard `{"success": true}` acknowledgement.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeError maps a domain error to an HTTP status and the uniform body.
//
// Mapping:
//   - validation, auth (bad credentials / bad token on a body path) → 400
//   - not found → 404, conflict → 409, forbidden → 403
//   - upstream identity provider failure → 502, message passed through
//   - anything else → generic 500; raw internals (SQL, file paths) are
//     never echoed to the client
//
// The guard-protected 401 path doesn't come through here — the auth
// middleware writes its own fixed body before handlers run.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrAuth):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusBadGateway
		}

		writeJSON(w, status, errorResponse{Error: appErr.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "An internal error occurred",
	})
}
