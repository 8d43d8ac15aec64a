package auth

import (
	"context"
	"net/http"

	"github.com/sakif/notes-api/internal/model"
)

// TokenHeader is the single header every authenticated endpoint reads the
// bearer credential from. The name is a contract with existing clients.
const TokenHeader = "access_token"

// AccessResolver resolves a presented token of a given kind to its owning
// user. Implemented by the token service; declared here so the guard does
// not depend on the service package.
type AccessResolver interface {
	Resolve(ctx context.Context, kind model.TokenKind, token string) (*model.User, error)
}

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

// RequireAuth enforces authentication on protected routes.
//
// It reads the access_token header, resolves it strictly as an access-kind
// credential, and stores the resolved user (and the presented token, which
// logout needs) in the request context. Missing, expired, revoked, or
// wrong-kind tokens all end the request here with a 401 — there is no
// anonymous fall-through on guarded routes.
func RequireAuth(resolver AccessResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				unauthorized(w)
				return
			}

			user, err := resolver.Resolve(r.Context(), model.KindAccess, token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized writes the fixed 401 body. The message is deliberately the
// same for every failure mode — clients learn nothing about WHY the token
// was rejected.
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Invalid access token"}`))
}

// UserFromContext retrieves the authenticated user set by RequireAuth.
// Returns (nil, false) on routes the guard did not run on.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// TokenFromContext retrieves the access token the current request presented.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}
