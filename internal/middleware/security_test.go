package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecure(mw *SecurityHeadersMiddleware) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw.Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	rec := serveSecure(NewSecurityHeadersMiddleware(false))

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be set in development")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSecurityHeadersMiddleware_HSTSInProduction(t *testing.T) {
	rec := serveSecure(NewSecurityHeadersMiddleware(true))

	if got := rec.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=31536000") {
		t.Errorf("HSTS = %q", got)
	}
}

func TestSecurityHeadersMiddleware_CSP(t *testing.T) {
	rec := serveSecure(NewSecurityHeadersMiddleware(true))
	csp := rec.Header().Get("Content-Security-Policy")

	for _, want := range []string{
		"default-src 'self'",
		"script-src 'self' https://unpkg.com",
		"img-src 'self' data:;",
		"frame-ancestors 'none'",
		"form-action 'self'",
	} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP missing %q: %s", want, csp)
		}
	}
}
