package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/service"
)

// DashboardHandler serves the role dashboards. Role checks are done by the
// RequireRole middleware the routes are wrapped with.
type DashboardHandler struct {
	pages
	loads service.LoadService
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(loads service.LoadService, renderer TemplateRenderer, logger *slog.Logger, isSecure bool) *DashboardHandler {
	return &DashboardHandler{
		pages: pages{renderer: renderer, logger: logger, isSecure: isSecure},
		loads: loads,
	}
}

// StatusCount is one tile of the load owner's summary.
type StatusCount struct {
	Status domain.LoadStatus
	Label  string
	Count  int64
}

// OwnerDashboardContent is the page data of the load owner dashboard.
type OwnerDashboardContent struct {
	Loads  []domain.Load
	Counts []StatusCount
	Total  int64
}

// DriverDashboardContent is the page data of the driver dashboard.
type DriverDashboardContent struct {
	Available []domain.Load
	Assigned  []domain.Load
}

var dashboardStatuses = []domain.LoadStatus{
	domain.LoadStatusPosted,
	domain.LoadStatusClaimed,
	domain.LoadStatusAccepted,
	domain.LoadStatusInTransit,
	domain.LoadStatusDelivered,
}

// Dashboard sends the user to the dashboard of their role.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, DashboardPath(user.Role), http.StatusSeeOther)
}

// LoadOwner shows the owner's loads and a count per status.
func (h *DashboardHandler) LoadOwner(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	loads, err := h.loads.ListByOwner(r.Context(), user.ID, service.Page{})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	counts, err := h.loads.CountByStatus(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	content := OwnerDashboardContent{Loads: loads}
	for _, s := range dashboardStatuses {
		content.Counts = append(content.Counts, StatusCount{Status: s, Label: s.Label(), Count: counts[s]})
		content.Total += counts[s]
	}
	h.render(w, r, http.StatusOK, "dashboard/load_owner", h.newPage(w, r, "Load Owner Dashboard", content))
}

// Driver shows the loads open for claiming and the driver's own loads.
func (h *DashboardHandler) Driver(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	available, err := h.loads.ListAvailable(r.Context(), service.Page{})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	assigned, err := h.loads.ListByDriver(r.Context(), user.ID, service.Page{})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	content := DriverDashboardContent{Available: available, Assigned: assigned}
	h.render(w, r, http.StatusOK, "dashboard/driver", h.newPage(w, r, "Driver Dashboard", content))
}
