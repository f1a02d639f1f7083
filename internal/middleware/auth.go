// Package middleware contains the HTTP middleware of the loadshare server.
//
// Middleware functions follow the standard func(http.Handler) http.Handler
// shape and are composed with Stack.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/handler"
	"github.com/DukeRupert/loadshare/internal/session"
)

// SessionResolver looks up the user owning a raw session token.
type SessionResolver interface {
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware resolves the session of each request and guards routes
// that need a signed-in user or a particular role.
type AuthMiddleware struct {
	sessions SessionResolver
	logger   *slog.Logger
	isSecure bool
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(sessions SessionResolver, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
		isSecure: isSecure,
	}
}

// WithUser puts the session's user in the request context when the request
// carries a valid session cookie or bearer token. It never rejects a
// request; a stale cookie is cleared.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.Token(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.sessions.GetBySessionToken(r.Context(), token)
		if err != nil {
			m.logger.Debug("session rejected", "code", domain.ErrorCode(err), "path", r.URL.Path)
			if session.BearerToken(r) == "" {
				session.ClearCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser sends anonymous requests to the login page, or answers 401
// for API callers. It must run after WithUser.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			m.unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only users of role. A signed-in user of the other role
// is redirected to their own dashboard; API callers get 403.
func (m *AuthMiddleware) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUser(r.Context())
			if user == nil {
				m.unauthenticated(w, r)
				return
			}
			if user.Role != role {
				if handler.IsAPIRequest(r) {
					handler.ForbiddenResponse(w, r, m.logger, "Access denied. This action requires a "+role.Label()+" account.")
					return
				}
				http.Redirect(w, r, handler.DashboardPath(user.Role), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if handler.IsAPIRequest(r) {
		handler.UnauthorizedResponse(w, r, m.logger)
		return
	}
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, handler.LoginRedirect(returnTo), http.StatusSeeOther)
}

// Stack composes middleware; the first one is the outermost.
//
//	stack := Stack(logging.Handler, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /dashboard", stack(dashboardHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
)
