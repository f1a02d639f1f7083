package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Test Helpers
// =============================================================================

type mockSessions struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockSessions) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, domain.Unauthorized("test", "invalid session")
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAuthMiddleware(mock *mockSessions) *AuthMiddleware {
	return NewAuthMiddleware(mock, newTestLogger(), false)
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{ID: uuid.New(), Email: "test@example.com", Name: "Test User", Role: role}
}

func withUser(r *http.Request, u *domain.User) *http.Request {
	return r.WithContext(auth.SetUser(r.Context(), u))
}

// =============================================================================
// WithUser
// =============================================================================

func TestWithUser_NoToken_ContinuesWithoutUser(t *testing.T) {
	mw := newTestAuthMiddleware(&mockSessions{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			t.Error("GetBySessionToken should not be called without a token")
			return nil, nil
		},
	})

	called := false
	h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if u := auth.GetUser(r.Context()); u != nil {
			t.Errorf("expected nil user, got %+v", u)
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("handler was not called")
	}
}

func TestWithUser_ValidCookie_SetsUserInContext(t *testing.T) {
	expected := testUser(domain.RoleDriver)
	mw := newTestAuthMiddleware(&mockSessions{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token != "valid-token-123" {
				t.Errorf("token = %q, want %q", token, "valid-token-123")
			}
			return expected, nil
		},
	})

	var captured *domain.User
	h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "valid-token-123"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if captured == nil || captured.ID != expected.ID {
		t.Fatalf("user = %+v, want %+v", captured, expected)
	}
}

func TestWithUser_BearerToken_SetsUserInContext(t *testing.T) {
	expected := testUser(domain.RoleLoadOwner)
	mw := newTestAuthMiddleware(&mockSessions{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token != "api-token" {
				t.Errorf("token = %q, want %q", token, "api-token")
			}
			return expected, nil
		},
	})

	var captured *domain.User
	h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer api-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if captured != expected {
		t.Fatalf("user = %+v, want %+v", captured, expected)
	}
}

func TestWithUser_InvalidCookie_ClearsAndContinues(t *testing.T) {
	mw := newTestAuthMiddleware(&mockSessions{})

	called := false
	h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "expired"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("handler was not called")
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestWithUser_InvalidBearer_LeavesCookiesAlone(t *testing.T) {
	mw := newTestAuthMiddleware(&mockSessions{})
	h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if n := len(rec.Result().Cookies()); n != 0 {
		t.Errorf("expected no cookies, got %d", n)
	}
}

// =============================================================================
// RequireUser
// =============================================================================

func TestRequireUser(t *testing.T) {
	mw := newTestAuthMiddleware(&mockSessions{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := mw.RequireUser(next)

	t.Run("signed in", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/loads/new", nil), testUser(domain.RoleLoadOwner)))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("anonymous html redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loads/new?x=1", nil))

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
		}
		loc := rec.Header().Get("Location")
		if !strings.HasPrefix(loc, "/login?return_to=") || !strings.Contains(loc, "%2Floads%2Fnew") {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("anonymous api gets 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})
}

// =============================================================================
// RequireRole
// =============================================================================

func TestRequireRole(t *testing.T) {
	mw := newTestAuthMiddleware(&mockSessions{})
	h := mw.RequireRole(domain.RoleDriver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		path     string
		user     *domain.User
		want     int
		location string
	}{
		{name: "matching role", path: "/dashboard/driver", user: testUser(domain.RoleDriver), want: http.StatusNoContent},
		{name: "other role redirected", path: "/dashboard/driver", user: testUser(domain.RoleLoadOwner), want: http.StatusSeeOther, location: "/dashboard/load-owner"},
		{name: "other role api", path: "/api/loads/x/claim", user: testUser(domain.RoleLoadOwner), want: http.StatusForbidden},
		{name: "anonymous", path: "/dashboard/driver", want: http.StatusSeeOther, location: "/login?return_to=%2Fdashboard%2Fdriver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != nil {
				req = withUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.location)
			}
		})
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("a"), mark("b"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b,handler" {
		t.Errorf("order = %v", order)
	}
}
