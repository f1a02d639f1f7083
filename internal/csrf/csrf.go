// Package csrf protects the HTML forms with the double-submit cookie
// pattern: a random token lives in a cookie and is echoed by every unsafe
// request, either as a form field or as the X-CSRF-Token header sent by
// htmx. A cross-site page can make the browser send the cookie but cannot
// read it, so it cannot echo it.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

const (
	CookieName    = "loadshare_csrf"
	FormFieldName = "csrf_token"
	HeaderName    = "X-CSRF-Token"

	// TokenLength is the number of random bytes in a token.
	TokenLength = 32

	// CookieMaxAge is 12 hours; long enough to fill in a load form.
	CookieMaxAge = 12 * 60 * 60
)

// GenerateToken returns a random base64url token.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken compares two tokens in constant time. Empty tokens never match.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// ValidateRequest checks the cookie against the header or, failing that,
// the form field.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.FormValue(FormFieldName)
	}
	return ValidateToken(cookie.Value, submitted)
}

// SetCookie writes the token cookie. It is readable by scripts so htmx can
// copy it into the header.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// EnsureToken returns the request's token, issuing a new cookie when there
// is none. Handlers call it before rendering a form.
func EnsureToken(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, err := GenerateToken()
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic("csrf: " + err.Error())
	}
	SetCookie(w, token, secure)
	return token
}

// Middleware rejects unsafe requests that do not echo the token. Requests
// under any of the exempt prefixes are passed through; the JSON API is
// exempt because it only accepts application/json bodies or bearer tokens.
type Middleware struct {
	logger *slog.Logger
	exempt []string
}

// NewMiddleware creates the CSRF middleware.
func NewMiddleware(logger *slog.Logger, exemptPrefixes ...string) *Middleware {
	return &Middleware{logger: logger, exempt: exemptPrefixes}
}

// Protect returns the wrapping handler.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || m.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !ValidateRequest(r) {
			m.logger.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
			http.Error(w, "Invalid or missing CSRF token. Please reload the page and try again.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) isExempt(path string) bool {
	for _, p := range m.exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
