// Package handler contains HTTP handlers for the LoadShare application.
//
// HTML pages are server-rendered from html/template sets wrapped as templ
// components; the JSON API lives in api.go.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/csrf"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/metrics"
)

// Flash represents a flash message to display to the user.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string
	Message string
}

// PageData is passed to every page template. Content holds the
// page-specific data.
type PageData struct {
	Title       string
	CurrentPath string
	CSRFToken   string
	User        *domain.User
	Flash       *Flash
	Redirect    *navigation // set on success pages
	Content     any
}

// notices are the flash messages a redirect may ask for with ?notice=.
// Only known keys are shown so the query string cannot inject text.
var notices = map[string]Flash{
	"logout":    {Type: "success", Message: "You have been signed out."},
	"claimed":   {Type: "success", Message: "Load claimed! The owner will review your request."},
	"status":    {Type: "success", Message: "Load status updated."},
	"message":   {Type: "success", Message: "Message sent."},
	"signed-in": {Type: "info", Message: "You are already signed in."},
}

func noticeFrom(r *http.Request) *Flash {
	if f, ok := notices[r.URL.Query().Get("notice")]; ok {
		return &f
	}
	return nil
}

// pages holds what every HTML handler needs to render.
type pages struct {
	renderer TemplateRenderer
	logger   *slog.Logger
	isSecure bool
}

func (p pages) newPage(w http.ResponseWriter, r *http.Request, title string, content any) PageData {
	return PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.EnsureToken(w, r, p.isSecure),
		User:        auth.GetUserFromRequest(r),
		Flash:       noticeFrom(r),
		Content:     content,
	}
}

func (p pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	render(w, r, p.logger, status, p.renderer.Page(name, data))
}

// currentUser returns the signed-in user. Anonymous visitors are sent to
// the login page, API callers get a 401.
func (p pages) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := auth.GetUserFromRequest(r)
	if user != nil {
		return user, true
	}
	if IsAPIRequest(r) {
		UnauthorizedResponse(w, r, p.logger)
	} else {
		http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusSeeOther)
	}
	return nil, false
}

// renderSuccess shows a success message and navigates to nav's target
// after its delay.
func (p pages) renderSuccess(w http.ResponseWriter, r *http.Request, message string, nav *navigation) {
	data := p.newPage(w, r, "Success", SuccessContent{Message: message, Target: nav.Target()})
	data.Redirect = nav
	p.render(w, r, http.StatusOK, "auth/success", data)
}

// recordSubmission counts a form outcome for the dashboards.
func recordSubmission(name string, err error) {
	outcome := "succeeded"
	switch {
	case err == nil:
	case errors.Is(err, form.ErrInvalid):
		outcome = "invalid"
	case errors.Is(err, form.ErrBusy), errors.Is(err, form.ErrDone):
		outcome = "duplicate"
	default:
		outcome = "rejected"
	}
	metrics.FormSubmitted(name, outcome)
}

// busyMessage is shown when the same form is posted again while the first
// submission is still running.
const busyMessage = "This form is already being submitted. Please wait."
