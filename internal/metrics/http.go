package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routeLabel names the request for the path label. The ServeMux pattern is
// used when the mux recorded one ("GET /loads/{id}" becomes "/loads/{id}");
// otherwise UUIDs in the raw path are collapsed to {id}.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		pattern := r.Pattern
		if _, path, ok := strings.Cut(pattern, " "); ok {
			pattern = path
		}
		return pattern
	}
	if strings.HasPrefix(r.URL.Path, "/static/") {
		return "/static/"
	}
	return uuidPattern.ReplaceAllString(r.URL.Path, "{id}")
}

// Middleware records request counts and latencies. It must be the innermost
// wrapper around the mux: the mux stores the matched pattern on the request
// it receives, and middleware that clones the request hides it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := routeLabel(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
