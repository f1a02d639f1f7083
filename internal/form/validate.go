package form

import (
	"regexp"
	"strconv"
	"time"

	"github.com/DukeRupert/loadshare/internal/domain"
)

// MinPasswordLength is the minimum length of a new password.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Messages shared by every form.
const (
	MsgInvalidEmail     = "Please enter a valid email"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgPasswordMismatch = "Passwords do not match"
)

// Rule is an extra check run after the field rules. It may only report
// fields that have no error yet; returned messages for fields that already
// failed are ignored.
type Rule func(values Values, role domain.Role, now time.Time) Errors

// Validate checks values against the fields of schema that are active for
// role. It is pure: the result depends only on its arguments.
func Validate(schema *Schema, values Values, role domain.Role, now time.Time, rules ...Rule) Errors {
	errs := Errors{}

	for _, f := range schema.Fields {
		if !f.ActiveFor(role) {
			continue
		}
		if msg := checkField(f, values, now); msg != "" {
			errs[f.Name] = msg
		}
	}

	for _, rule := range rules {
		for name, msg := range rule(values, role, now) {
			if _, taken := errs[name]; !taken && msg != "" {
				errs[name] = msg
			}
		}
	}
	return errs
}

func checkField(f Field, values Values, now time.Time) string {
	raw := values.Get(f.Name)
	value := trimmed(raw)

	// The confirmation check ignores the required rules of both fields.
	if f.Kind == KindConfirm {
		if raw != values.Get(f.Matches) {
			return MsgPasswordMismatch
		}
		if f.Required && value == "" {
			return f.Label + " is required"
		}
		return ""
	}

	if value == "" {
		if f.Required {
			return f.Label + " is required"
		}
		return ""
	}

	switch f.Kind {
	case KindEmail:
		if !emailPattern.MatchString(value) {
			return MsgInvalidEmail
		}
	case KindPassword:
		if len([]rune(raw)) < MinPasswordLength {
			return MsgPasswordTooShort
		}
	case KindNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return f.Label + " must be a number"
		}
		if n <= 0 {
			return f.Label + " must be positive"
		}
	case KindDate:
		d, err := time.ParseInLocation(domain.PickupDateLayout, value, now.Location())
		if err != nil {
			return f.Label + " must be a valid date"
		}
		if d.Before(startOfDay(now)) {
			return f.Label + " cannot be in the past"
		}
	}
	return ""
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
