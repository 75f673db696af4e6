package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// Principal is the authenticated caller: the bearer token exactly as
// presented plus the re-validated record. The presented token matters — the
// envelope protocol encrypts against the token the client holds, not against
// any refreshed one.
type Principal struct {
	Token  string
	Record *models.Record
}

type contextKey string

const principalContextKey contextKey = "principal"

// RequireAuth validates the bearer token against the identity store and
// injects the principal into the request context. An unverified local expiry
// check runs first so dead tokens never cost a network round trip.
func RequireAuth(store identity.Store, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				pkghttp.WriteUnauthorized(w, models.ErrNoToken.Error())
				return
			}

			if TokenExpired(token) {
				pkghttp.WriteUnauthorized(w, models.ErrInvalidSession.Error())
				return
			}

			res, err := store.AuthRefresh(r.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrRejected) {
					pkghttp.WriteUnauthorized(w, models.ErrInvalidSession.Error())
					return
				}
				logger.Error("identity store auth refresh failed", slog.Any("error", err))
				pkghttp.WriteInternalError(w, models.ErrInternalServer.Error())
				return
			}

			principal := &Principal{Token: token, Record: res.Record}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// ContextWithPrincipal injects an authenticated principal into a context.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from a request.
func PrincipalFromContext(r *http.Request) *Principal {
	principal, ok := r.Context().Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return principal
}
