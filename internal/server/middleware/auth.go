package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/service"
)

type contextKeyAuth string

// accountKey is the context key for the authenticated account.
const accountKey contextKeyAuth = "account"

// Authenticate returns an HTTP middleware that resolves the Authorization
// bearer token to the current account. The account is re-read from the store
// on every request, so role changes and deactivations apply immediately. On
// failure a 401 (or 403 for disabled accounts) JSON error is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required. Provide a Bearer token.")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			acct, err := authSvc.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					writeAuthError(w, http.StatusUnauthorized, "Token expired")
				case errors.Is(err, service.ErrAccountDisabled):
					writeAuthError(w, http.StatusForbidden, "Your account has been deactivated.")
				default:
					writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns an HTTP middleware that rejects requests whose
// authenticated account is outside the allowed role set. It must run after
// Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct := GetAccount(r.Context())
			if acct == nil || !acct.Role.Satisfies(roles...) {
				writeAuthError(w, http.StatusForbidden, "Access denied. Insufficient privileges.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAccount extracts the authenticated account from the context. Returns
// nil for unauthenticated requests.
func GetAccount(ctx context.Context) *model.Account {
	if acct, ok := ctx.Value(accountKey).(*model.Account); ok {
		return acct
	}
	return nil
}

// WithAccount returns a context carrying the given account. Used by tests.
func WithAccount(ctx context.Context, acct *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
