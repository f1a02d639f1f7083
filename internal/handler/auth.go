package handler

// This file implements the registration, login and logout pages. Each POST
// builds a form.Controller over the posted values, lets it validate and
// submit once, and renders either the form with its errors or the success
// page that navigates to the user's dashboard.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/service"
	"github.com/DukeRupert/loadshare/internal/session"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// AuthConfig holds the tunables of the auth pages.
type AuthConfig struct {
	SessionTTL   time.Duration
	SuccessDelay time.Duration
	IsSecure     bool
}

// AuthHandler handles authentication-related HTTP requests.
//
// Routes handled:
// - GET  /register         -> ShowRegister
// - GET  /register/fields  -> RegisterFields (htmx role switch)
// - POST /register         -> Register
// - GET  /login            -> ShowLogin
// - POST /login            -> Login
// - POST /logout           -> Logout
type AuthHandler struct {
	pages
	users      service.UserService
	guard      *form.Guard
	sessionTTL time.Duration
	delay      time.Duration
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
// The guard is shared with the other form handlers so a submission key is
// honoured once across the whole site.
func NewAuthHandler(
	users service.UserService,
	guard *form.Guard,
	renderer TemplateRenderer,
	logger *slog.Logger,
	cfg AuthConfig,
) *AuthHandler {
	return &AuthHandler{
		pages:      pages{renderer: renderer, logger: logger, isSecure: cfg.IsSecure},
		users:      users,
		guard:      guard,
		sessionTTL: cfg.SessionTTL,
		delay:      cfg.SuccessDelay,
	}
}

// FormContent is the page data of a page that shows one form.
type FormContent struct {
	Form FormView
}

// SuccessContent is the page data of a success page.
type SuccessContent struct {
	Message string
	Target  string
}

// =============================================================================
// GET /register - Show Registration Form
// =============================================================================

// ShowRegister displays the registration form. The role query parameter
// preselects the account type; anything unrecognised falls back to load
// owner. Signed-in users are sent to their dashboard.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if user := auth.GetUserFromRequest(r); user != nil {
		http.Redirect(w, r, DashboardPath(user.Role), http.StatusSeeOther)
		return
	}

	role := domain.RoleOrDefault(r.URL.Query().Get("role"))
	c := h.registerController(nil, nil, form.Values{}, role).WithKey(form.NewKey())
	h.renderForm(w, r, http.StatusOK, "auth/register", "Create Account", c, PathRegister)
}

// RegisterFields renders the role-specific block of the registration form
// for the htmx role switch. The block's current values come in the query
// string; values of the role being hidden are kept as hidden inputs so
// switching back restores them.
func (h *AuthHandler) RegisterFields(w http.ResponseWriter, r *http.Request) {
	schema := form.MustLookup(form.Register)
	q := r.URL.Query()

	c := h.registerController(nil, nil, form.ValuesFrom(schema, q), domain.RoleOrDefault(q.Get("role")))
	if target, ok := domain.ParseRole(q.Get("switch")); ok {
		c.SetRole(target)
	}
	render(w, r, h.logger, http.StatusOK, h.renderer.Partial("role_fields", newFormView(c, PathRegister)))
}

// =============================================================================
// POST /register - Process Registration
// =============================================================================

// Register processes the registration form submission.
//
// Success Flow:
//  1. Controller validates the fields active for the chosen role
//  2. The payload is decoded into domain.RegisterRequest and registered
//  3. The session cookie is set and the success page navigates to the
//     role's dashboard after the configured delay
//
// Error Flow:
// - Validation errors re-render the form with 422
// - A duplicate email is shown under the email field with 409
// - A repeated submission key is rejected without calling the service
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	schema := form.MustLookup(form.Register)
	sessions := &cookieSessions{w: w, ttl: h.sessionTTL, secure: h.isSecure}
	nav := &navigation{}

	c := h.registerController(sessions, nav,
		form.ValuesFrom(schema, r.PostForm),
		domain.RoleOrDefault(r.PostFormValue("role")),
	).WithKey(r.PostFormValue(form.KeyField))

	err := c.Submit(r.Context())
	recordSubmission(form.Register, err)

	switch {
	case err == nil:
		h.logger.Info("user registered", "user_id", sessions.user.ID, "role", sessions.user.Role)
		h.renderSuccess(w, r, c.Message(), nav)
	case errors.Is(err, form.ErrDone):
		http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
	default:
		h.renderFormError(w, r, err, "auth/register", "Create Account", c, PathRegister)
	}
}

func (h *AuthHandler) registerController(sessions form.SessionStore, nav form.Navigator, values form.Values, role domain.Role) *form.Controller {
	return form.New(form.Config{
		Schema:    form.MustLookup(form.Register),
		Submit:    h.submitRegister,
		Sessions:  sessions,
		Navigator: nav,
		Guard:     h.guard,
		Delay:     h.delay,
		Logger:    h.logger,
	}, values, role)
}

func (h *AuthHandler) submitRegister(ctx context.Context, sub form.Submission) (form.Receipt, error) {
	const op = "handler.register"

	var req domain.RegisterRequest
	if err := sub.Decode(&req); err != nil {
		return form.Receipt{}, domain.Invalid(op, "Invalid form submission")
	}
	params, err := req.Params()
	if err != nil {
		return form.Receipt{}, err
	}
	result, err := h.users.Register(ctx, params)
	if err != nil {
		return form.Receipt{}, err
	}
	return form.Receipt{Token: result.Token, User: result.User, Value: result.User}, nil
}

// =============================================================================
// GET /login - Show Login Form
// =============================================================================

// ShowLogin displays the login form. A safe return_to is carried through
// the form so the user lands back where they started.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if user := auth.GetUserFromRequest(r); user != nil {
		http.Redirect(w, r, DashboardPath(user.Role), http.StatusSeeOther)
		return
	}

	c := h.loginController(nil, nil, form.Values{}).WithKey(form.NewKey())
	h.renderForm(w, r, http.StatusOK, "auth/login", "Sign In", c, PathLogin)
}

// =============================================================================
// POST /login - Process Login
// =============================================================================

// Login processes the login form submission.
//
// Invalid credentials re-render the form with 401 and the generic
// "Invalid email or password" message; the login rate limiter counts those
// responses. The password is never echoed back.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	schema := form.MustLookup(form.Login)
	sessions := &cookieSessions{w: w, ttl: h.sessionTTL, secure: h.isSecure}
	nav := &navigation{}
	if target, ok := SafeReturnTo(r.PostFormValue("return_to")); ok {
		nav.override = target
	}

	c := h.loginController(sessions, nav, form.ValuesFrom(schema, r.PostForm)).
		WithKey(r.PostFormValue(form.KeyField))

	err := c.Submit(r.Context())
	recordSubmission(form.Login, err)

	switch {
	case err == nil:
		h.logger.Info("user logged in", "user_id", sessions.user.ID)
		h.renderSuccess(w, r, c.Message(), nav)
	case errors.Is(err, form.ErrDone):
		http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
	default:
		h.renderFormError(w, r, err, "auth/login", "Sign In", c, PathLogin)
	}
}

func (h *AuthHandler) loginController(sessions form.SessionStore, nav form.Navigator, values form.Values) *form.Controller {
	return form.New(form.Config{
		Schema:    form.MustLookup(form.Login),
		Submit:    h.submitLogin,
		Sessions:  sessions,
		Navigator: nav,
		Guard:     h.guard,
		Delay:     h.delay,
		Logger:    h.logger,
	}, values, "")
}

func (h *AuthHandler) submitLogin(ctx context.Context, sub form.Submission) (form.Receipt, error) {
	const op = "handler.login"

	var params domain.LoginParams
	if err := sub.Decode(&params); err != nil {
		return form.Receipt{}, domain.Invalid(op, "Invalid form submission")
	}
	result, err := h.users.Login(ctx, params)
	if err != nil {
		return form.Receipt{}, err
	}
	return form.Receipt{Token: result.Token, User: result.User}, nil
}

// =============================================================================
// POST /logout - Process Logout
// =============================================================================

// Logout invalidates the user's session and clears the session cookie.
// It is idempotent and always ends on the home page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.Token(r); token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			// Log error but continue - cookie will be cleared anyway
			h.logger.Warn("failed to invalidate session in database", "error", err)
		}
	}
	session.ClearCookie(w, h.isSecure)
	http.Redirect(w, r, PathHome+"?notice=logout", http.StatusSeeOther)
}

// =============================================================================
// Rendering
// =============================================================================

func (h *AuthHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, page, title string, c *form.Controller, action string) {
	view := newFormView(c, action)
	if target, ok := SafeReturnTo(r.FormValue("return_to")); ok {
		view.ReturnTo = target
	}
	h.render(w, r, status, page, h.newPage(w, r, title, FormContent{Form: view}))
}

func (h *AuthHandler) renderFormError(w http.ResponseWriter, r *http.Request, err error, page, title string, c *form.Controller, action string) {
	status := submitStatus(err)
	view := newFormView(c, action)
	if errors.Is(err, form.ErrBusy) {
		view.General = busyMessage
	}
	if target, ok := SafeReturnTo(r.FormValue("return_to")); ok {
		view.ReturnTo = target
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("form submission failed", "form", view.Name, "error", err)
	}
	h.render(w, r, status, page, h.newPage(w, r, title, FormContent{Form: view}))
}

// RegisterRoutes registers the public authentication routes. The POST
// routes are wrapped with rate limiting by the caller.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /register", h.ShowRegister)
	mux.HandleFunc("GET /register/fields", h.RegisterFields)
	mux.HandleFunc("GET /login", h.ShowLogin)
	mux.HandleFunc("POST /logout", h.Logout)
}
