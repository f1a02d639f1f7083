package handler

import (
	"errors"
	"math"
	"net/http"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/session"
)

// =============================================================================
// Form View
// =============================================================================

const (
	inputClass      = "block w-full rounded-md border border-gray-300 px-3 py-2 text-sm shadow-sm focus:border-blue-500 focus:outline-none"
	inputErrorClass = "border-red-500 focus:border-red-500"
)

// FieldView is one input as the templates see it.
type FieldView struct {
	Name        string
	Caption     string
	Type        string
	Placeholder string
	Value       string
	Error       string
	Required    bool
	Textarea    bool
}

// ID is the element id of the input.
func (f FieldView) ID() string {
	return "field-" + f.Name
}

// Class merges the error styling over the base input classes.
func (f FieldView) Class() string {
	if f.Error == "" {
		return inputClass
	}
	return twmerge.Merge(inputClass, inputErrorClass)
}

// HiddenField carries a value that is kept but not shown.
type HiddenField struct {
	Name  string
	Value string
}

// RoleOption is one choice of the role switch.
type RoleOption struct {
	Role   domain.Role
	Label  string
	Active bool
}

// Class highlights the active choice.
func (o RoleOption) Class() string {
	base := "btn w-full border border-gray-300 bg-white text-gray-700"
	if !o.Active {
		return base
	}
	return twmerge.Merge(base, "border-blue-600 bg-blue-600 text-white")
}

// FormView is the render model of a form.Controller. Fields are split around
// the role-specific block so the role switch can swap only that block.
type FormView struct {
	Name        string
	Title       string
	Action      string
	Key         string
	KeyField    string
	Role        domain.Role
	Roles       []RoleOption
	Leading     []FieldView
	RoleFields  []FieldView
	Trailing    []FieldView
	Hidden      []HiddenField
	General     string
	Extra       map[string]string // errors of inputs outside the schema
	SubmitLabel string
	BusyLabel   string // shown by forms.js while the request is in flight
	Disabled    bool
	ReturnTo    string
}

// HasRoles reports whether the form renders a role switch.
func (v FormView) HasRoles() bool {
	return len(v.Roles) > 0
}

func newFormView(c *form.Controller, action string) FormView {
	schema := c.Schema()
	role := c.Role()
	values := c.Values()
	errs := c.Errors()

	v := FormView{
		Name:        schema.Name,
		Title:       schema.Title,
		Action:      action,
		Key:         c.Key(),
		KeyField:    form.KeyField,
		Role:        role,
		General:     errs.General(),
		Extra:       map[string]string{},
		SubmitLabel: c.SubmitLabel(),
		BusyLabel:   schema.BusyLabel,
		Disabled:    c.Disabled(),
	}

	if schema.HasRoles() {
		for _, r := range []domain.Role{domain.RoleLoadOwner, domain.RoleDriver} {
			v.Roles = append(v.Roles, RoleOption{Role: r, Label: r.Label(), Active: r == role})
		}
	}

	seenRole := false
	for _, f := range schema.Fields {
		if f.Role != "" {
			seenRole = true
			if !f.ActiveFor(role) {
				if val := values.Get(f.Name); val != "" {
					v.Hidden = append(v.Hidden, HiddenField{Name: f.Name, Value: val})
				}
				continue
			}
			v.RoleFields = append(v.RoleFields, fieldView(f, values, errs))
			continue
		}
		if seenRole {
			v.Trailing = append(v.Trailing, fieldView(f, values, errs))
		} else {
			v.Leading = append(v.Leading, fieldView(f, values, errs))
		}
	}

	for name, msg := range errs {
		if _, ok := schema.Field(name); !ok && name != form.GeneralKey {
			v.Extra[name] = msg
		}
	}
	return v
}

func fieldView(f form.Field, values form.Values, errs form.Errors) FieldView {
	fv := FieldView{
		Name:        f.Name,
		Caption:     f.DisplayCaption(),
		Type:        f.Kind.InputType(),
		Placeholder: f.Placeholder,
		Error:       errs.Get(f.Name),
		Required:    f.Required,
		Textarea:    f.Kind == form.KindTextarea,
	}
	// Passwords are never echoed back into the page.
	switch f.Kind {
	case form.KindPassword, form.KindSecret, form.KindConfirm:
	default:
		fv.Value = values.Get(f.Name)
	}
	return fv
}

// =============================================================================
// Controller collaborators
// =============================================================================

// navigation records where a successful submission goes next. The page
// shows the success message and follows it after the delay.
type navigation struct {
	override string
	path     string
	delay    time.Duration
}

func (n *navigation) Navigate(dest domain.Destination, delay time.Duration) {
	n.path = DestinationPath(dest)
	if n.override != "" {
		n.path = n.override
	}
	n.delay = delay
}

// Target returns the URL to go to.
func (n *navigation) Target() string {
	return n.path
}

// DelaySeconds rounds the delay up for the meta refresh.
func (n *navigation) DelaySeconds() int {
	return int(math.Ceil(n.delay.Seconds()))
}

// DelayMillis is used by the htmx trigger.
func (n *navigation) DelayMillis() int64 {
	return n.delay.Milliseconds()
}

// cookieSessions persists the session token returned by a successful
// registration or login as the session cookie.
type cookieSessions struct {
	w      http.ResponseWriter
	ttl    time.Duration
	secure bool
	user   *domain.User
}

func (s *cookieSessions) SaveSession(token string, user *domain.User) {
	session.SetCookie(s.w, token, s.ttl, s.secure)
	s.user = user
}

var (
	_ form.Navigator    = (*navigation)(nil)
	_ form.SessionStore = (*cookieSessions)(nil)
)

// submitStatus picks the response status of a failed submission.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, form.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrBusy):
		return http.StatusConflict
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	var se *form.SubmitError
	if errors.As(err, &se) {
		return ErrorCodeToHTTPStatus(domain.ErrorCode(se.Err))
	}
	return http.StatusInternalServerError
}
