// Package session owns the session cookie and the bearer header that carry
// a raw session token. It is shared by the handler and middleware packages.
package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "loadshare_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// TokenType is reported to API clients next to the access token.
	TokenType = "bearer"
)

// SetCookie stores token in the session cookie for ttl.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     CookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the session token of a request. An Authorization bearer
// header wins over the cookie.
func Token(r *http.Request) string {
	if t := BearerToken(r); t != "" {
		return t
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
