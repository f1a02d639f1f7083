package form

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/DukeRupert/loadshare/internal/domain"
	gpform "github.com/go-playground/form"
)

// DefaultDelay is how long the success message stays visible before the
// controller navigates away.
const DefaultDelay = 2 * time.Second

// Status is the submission state of a form.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Interactive reports whether the submit control is enabled.
func (s Status) Interactive() bool {
	return s == StatusIdle || s == StatusFailed
}

var (
	// ErrInvalid is returned by Submit when validation fails.
	ErrInvalid = errors.New("form: validation failed")

	// ErrBusy is returned by Submit while an earlier submission is in flight.
	ErrBusy = errors.New("form: submission in progress")

	// ErrDone is returned by Submit after a successful submission.
	ErrDone = errors.New("form: already submitted")
)

// SubmitError wraps the collaborator's failure.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "form: submit failed: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Submission is what the controller hands to the submit collaborator.
type Submission struct {
	Form    string
	Role    domain.Role
	Values  Values     // active fields only, as entered
	Payload url.Values // keyed by payload names, empty values omitted
}

var decoder = gpform.NewDecoder()

// Decode fills dst, a pointer to a struct with `form` tags, from the payload.
func (s Submission) Decode(dst any) error {
	return decoder.Decode(dst, s.Payload)
}

// Receipt is the collaborator's acknowledgement of a successful submission.
type Receipt struct {
	Token       string       // session token to persist, if any
	User        *domain.User // identity the token belongs to
	Destination domain.Destination
	Value       any // created resource, if any
}

// SubmitFunc performs the remote half of a submission.
type SubmitFunc func(ctx context.Context, sub Submission) (Receipt, error)

// SessionStore persists identity data returned by a successful submission.
type SessionStore interface {
	SaveSession(token string, user *domain.User)
}

// Navigator performs the route change after a successful submission.
// The delay is how long the success message must stay visible first.
type Navigator interface {
	Navigate(dest domain.Destination, delay time.Duration)
}

// Config parameterizes a Controller.
type Config struct {
	Schema *Schema
	Rules  []Rule
	Submit SubmitFunc

	// Destination picks where to go after success. When nil the receipt's
	// destination is used, then the user's role dashboard, then the active
	// role's dashboard.
	Destination func(role domain.Role, r Receipt) domain.Destination

	Sessions  SessionStore
	Navigator Navigator
	Guard     *Guard
	Delay     time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Controller owns the state of one form instance.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	store   *Store
	role    domain.Role
	status  Status
	message string
	key     string
}

// New creates a controller seeded with initial values and role. Forms whose
// schema declares role-specific fields fall back to domain.DefaultRole when
// role is not valid.
func New(cfg Config, initial Values, role domain.Role) *Controller {
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Schema.HasRoles() && !role.IsValid() {
		role = domain.DefaultRole
	}
	return &Controller{
		cfg:   cfg,
		store: NewStore(initial),
		role:  role,
	}
}

// WithKey attaches the one-time submission key rendered into the form.
func (c *Controller) WithKey(key string) *Controller {
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
	return c
}

// Key returns the submission key.
func (c *Controller) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Schema returns the form definition.
func (c *Controller) Schema() *Schema {
	return c.cfg.Schema
}

// SetField replaces a value and clears its displayed error.
func (c *Controller) SetField(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetField(name, value)
}

// Value returns the current value of a field.
func (c *Controller) Value(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Value(name)
}

// Values returns a copy of every value, including inactive role fields.
func (c *Controller) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Values()
}

// Errors returns a copy of the displayed errors.
func (c *Controller) Errors() Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Errors()
}

// Status returns the submission status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Message returns the success message once the form has succeeded.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Role returns the active role.
func (c *Controller) Role() domain.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SetRole switches the active field subset. Entered values are kept and
// errors of fields that are no longer active are dropped.
func (c *Controller) SetRole(role domain.Role) {
	if !role.IsValid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role

	errs := c.store.Errors()
	for _, f := range c.cfg.Schema.Fields {
		if !f.ActiveFor(role) {
			delete(errs, f.Name)
		}
	}
	c.store.SetErrors(errs)
}

// Fields returns the fields active for the current role.
func (c *Controller) Fields() []Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Schema.ActiveFields(c.role)
}

// SubmitLabel returns the caption of the submit control.
func (c *Controller) SubmitLabel() string {
	if c.Status() == StatusSubmitting {
		return c.cfg.Schema.BusyLabel
	}
	return c.cfg.Schema.SubmitLabel
}

// Disabled reports whether the submit control is disabled.
func (c *Controller) Disabled() bool {
	return !c.Status().Interactive()
}

// Validate runs the validator against the current values without changing
// the displayed errors.
func (c *Controller) Validate() Errors {
	c.mu.Lock()
	values, role := c.store.Values(), c.role
	c.mu.Unlock()
	return Validate(c.cfg.Schema, values, role, c.cfg.Now(), c.cfg.Rules...)
}

// Submit validates the form and, when valid, performs exactly one call to the
// submit collaborator.
//
// It returns ErrInvalid when validation fails, ErrBusy while another
// submission is in flight, ErrDone after success and a *SubmitError when the
// collaborator fails. On success the session store and navigator are invoked
// once each.
func (c *Controller) Submit(ctx context.Context) error {
	schema := c.cfg.Schema

	c.mu.Lock()
	switch c.status {
	case StatusSubmitting:
		c.mu.Unlock()
		return ErrBusy
	case StatusSucceeded:
		c.mu.Unlock()
		return ErrDone
	}

	values, role, key := c.store.Values(), c.role, c.key
	errs := Validate(schema, values, role, c.cfg.Now(), c.cfg.Rules...)
	if !errs.Empty() {
		c.store.SetErrors(errs)
		c.mu.Unlock()
		return ErrInvalid
	}

	if c.cfg.Guard != nil {
		if err := c.cfg.Guard.Begin(key); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	c.store.ClearErrors()
	c.status = StatusSubmitting
	c.message = ""
	c.mu.Unlock()

	sub := buildSubmission(schema, values, role)
	receipt, err := c.cfg.Submit(ctx, sub)

	if c.cfg.Guard != nil {
		c.cfg.Guard.Finish(key, err == nil)
	}

	if err != nil {
		c.mu.Lock()
		c.store.SetErrors(interpret(schema, err))
		c.status = StatusFailed
		c.mu.Unlock()

		c.cfg.Logger.Info("form submission rejected",
			"form", schema.Name,
			"role", role,
			"code", domain.ErrorCode(err),
			"error", err,
		)
		return &SubmitError{Err: err}
	}

	c.mu.Lock()
	c.status = StatusSucceeded
	c.message = schema.SuccessMessage
	c.mu.Unlock()

	if receipt.Token != "" && c.cfg.Sessions != nil {
		c.cfg.Sessions.SaveSession(receipt.Token, receipt.User)
	}
	if c.cfg.Navigator != nil {
		c.cfg.Navigator.Navigate(c.destination(role, receipt), c.cfg.Delay)
	}
	return nil
}

func (c *Controller) destination(role domain.Role, r Receipt) domain.Destination {
	if c.cfg.Destination != nil {
		return c.cfg.Destination(role, r)
	}
	if r.Destination != "" {
		return r.Destination
	}
	if r.User != nil {
		return r.User.Role.Dashboard()
	}
	return role.Dashboard()
}

func buildSubmission(schema *Schema, values Values, role domain.Role) Submission {
	sub := Submission{
		Form:    schema.Name,
		Role:    role,
		Values:  Values{},
		Payload: url.Values{},
	}
	for _, f := range schema.ActiveFields(role) {
		raw := values.Get(f.Name)
		sub.Values[f.Name] = raw
		if f.Param == "" {
			continue
		}
		value := raw
		if f.Kind != KindPassword && f.Kind != KindSecret {
			value = trimmed(raw)
		}
		if value != "" {
			sub.Payload.Set(f.Param, value)
		}
	}
	if schema.RoleParam != "" && role != "" {
		sub.Payload.Set(schema.RoleParam, role.String())
	}
	return sub
}

// interpret turns a collaborator failure into displayed errors. Conflicts are
// attached to the schema's conflict field, server-side field errors to their
// fields, everything else to the general slot.
func interpret(schema *Schema, err error) Errors {
	errs := Errors{}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		for key, msg := range ve.Fields {
			if f, ok := schema.FieldForParam(key); ok {
				errs[f.Name] = msg
			} else if f, ok := schema.Field(key); ok {
				errs[f.Name] = msg
			} else if _, set := errs[GeneralKey]; !set {
				errs[GeneralKey] = msg
			}
		}
		if errs.Empty() {
			errs[GeneralKey] = failureMessage(schema)
		}
		return errs
	}

	switch domain.ErrorCode(err) {
	case domain.ECONFLICT:
		if schema.ConflictField != "" {
			errs[schema.ConflictField] = domain.ErrorMessage(err)
		} else {
			errs[GeneralKey] = domain.ErrorMessage(err)
		}
	case domain.EINVALID, domain.EUNAUTHORIZED, domain.EFORBIDDEN,
		domain.ENOTFOUND, domain.ERATELIMIT, domain.ETOOLARGE:
		errs[GeneralKey] = domain.ErrorMessage(err)
	default:
		errs[GeneralKey] = failureMessage(schema)
	}
	return errs
}

func failureMessage(schema *Schema) string {
	if schema.FailureMessage != "" {
		return schema.FailureMessage
	}
	return "Something went wrong. Please try again."
}
