package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HomeHandler serves the landing page and the health check.
type HomeHandler struct {
	pages
	ping func(ctx context.Context) error
}

// NewHomeHandler creates a HomeHandler. ping checks the database for the
// health endpoint.
func NewHomeHandler(ping func(ctx context.Context) error, renderer TemplateRenderer, logger *slog.Logger, isSecure bool) *HomeHandler {
	return &HomeHandler{
		pages: pages{renderer: renderer, logger: logger, isSecure: isSecure},
		ping:  ping,
	}
}

// HomeContent is the page data of the landing page.
type HomeContent struct {
	DashboardPath string
}

// RegisterRoutes registers the landing page and the health check.
func (h *HomeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /health", h.Health)
}

// Home shows the landing page with a call to action per role. Signed-in
// users get a link to their dashboard instead.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(w, r, "LoadShare", HomeContent{})
	if data.User != nil {
		data.Content = HomeContent{DashboardPath: DashboardPath(data.User.Role)}
	}
	h.render(w, r, http.StatusOK, "public/home", data)
}

// Health reports whether the database is reachable.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Error("health check failed", "error", err)
			status = map[string]string{"status": "unavailable", "database": "unreachable"}
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}
