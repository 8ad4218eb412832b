package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/service"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

func newTestAuthService(t *testing.T) (*service.AuthService, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Options{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := service.NewTokenIssuer("middleware-test-secret", time.Hour)
	return service.NewAuthService(st, tokens, logger, service.AuthConfig{BcryptCost: bcrypt.MinCost}), st
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("expected a generated request ID in the context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header: got %q, want %q", got, seen)
	}
}

func TestRequestIDClientProvided(t *testing.T) {
	h := RequestID(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("expected the client ID to win, got %q", got)
	}
}

func TestAuthenticateMissingHeader(t *testing.T) {
	authSvc, _ := newTestAuthService(t)
	h := Authenticate(authSvc)(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	authSvc, _ := newTestAuthService(t)

	res, err := authSvc.Register(context.Background(),
		"Alice", "alice@example.com", "supersecretpassword", model.RoleUser)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var got *model.Account
	h := Authenticate(authSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAccount(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200\nbody: %s", rr.Code, rr.Body.String())
	}
	if got == nil || got.ID != res.Account.ID {
		t.Errorf("expected the account in the context, got %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin, model.RoleSuperAdmin)(okHandler())

	cases := []struct {
		name string
		acct *model.Account
		want int
	}{
		{"no account", nil, http.StatusForbidden},
		{"user", &model.Account{Role: model.RoleUser}, http.StatusForbidden},
		{"admin", &model.Account{Role: model.RoleAdmin}, http.StatusOK},
		{"super admin", &model.Account{Role: model.RoleSuperAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.acct != nil {
				req = req.WithContext(WithAccount(req.Context(), tc.acct))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Errorf("status: got %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestLoggerPreservesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", rr.Code)
	}
}
