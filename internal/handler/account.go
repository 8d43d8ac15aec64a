package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/service"
)

// AccountHandler exposes the /users routes: registration, login, token
// refresh, logout, password change, activation, and the external connect
// endpoints. Handlers only parse and respond — every rule lives in the
// services.
type AccountHandler struct {
	accounts *service.AccountService
	tokens   *service.TokenService
	connect  *service.ConnectService
	facebook auth.ExternalProvider
	google   auth.ExternalProvider
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(
	accounts *service.AccountService,
	tokens *service.TokenService,
	connect *service.ConnectService,
	facebook auth.ExternalProvider,
	google auth.ExternalProvider,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		tokens:   tokens,
		connect:  connect,
		facebook: facebook,
		google:   google,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /users/register {email, password} → 200 {email}
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// HandleLogin verifies credentials and returns a token pair.
//
// HTTP: POST /users/login {email, password}
// → 200 {access_token, refresh_token, expires}
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	pair, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// HandleRefreshToken rotates a refresh token into a fresh pair.
//
// HTTP: POST /users/refresh_token {refresh_token}
// → 200 {access_token, refresh_token, expires}
func (h *AccountHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Refresh token is required"})
		return
	}

	pair, err := h.tokens.RotateRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// HandleLogout revokes the access token the request authenticated with.
//
// HTTP: POST /users/logout (access_token header) → 200 {success}
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	token, tok := auth.TokenFromContext(r.Context())
	if !ok || !tok {
		// The guard puts both in the context; missing values mean a wiring
		// bug, not a client error.
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal error occurred"})
		return
	}

	if err := h.accounts.Logout(r.Context(), user, token); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w)
}

// HandleChangePassword rotates the password and revokes every session.
//
// HTTP: POST /users/change_password {old_password, new_password}
// (access_token header) → 200 {success}
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal error occurred"})
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w)
}

// HandleSendActivationCode mails a fresh activation code.
//
// HTTP: POST /users/send_activation_code {email} → 200 {success}
func (h *AccountHandler) HandleSendActivationCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	if err := h.accounts.ResendActivation(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w)
}

// HandleActivate consumes an activation code from the email link.
//
// HTTP: GET /users/activate/{code} → 200 {success}
func (h *AccountHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Activation code is required"})
		return
	}

	if err := h.accounts.Activate(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w)
}

// HandleEmailExists reports whether an email is registered.
//
// HTTP: GET /users/email_exists/{email} → 200 {exists}
func (h *AccountHandler) HandleEmailExists(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	exists, err := h.accounts.EmailExists(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// HandleFacebookConnect logs in (or signs up) via a Facebook access token.
//
// HTTP: POST /users/facebook_connect {token}
// → 200 {access_token, refresh_token, expires}
func (h *AccountHandler) HandleFacebookConnect(w http.ResponseWriter, r *http.Request) {
	h.handleConnect(w, r, h.facebook)
}

// HandleGoogleConnect logs in (or signs up) via a Google ID token.
//
// HTTP: POST /users/google_connect {token}
// → 200 {access_token, refresh_token, expires}
func (h *AccountHandler) HandleGoogleConnect(w http.ResponseWriter, r *http.Request) {
	h.handleConnect(w, r, h.google)
}

func (h *AccountHandler) handleConnect(w http.ResponseWriter, r *http.Request, provider auth.ExternalProvider) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	pair, err := h.connect.Connect(r.Context(), provider, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}
