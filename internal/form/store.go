// Package form implements the role-conditional form controller shared by the
// registration, login and load-creation screens.
//
// A form is described by a Schema. A Controller owns the current field
// values, the displayed errors and the submission status for one form
// instance; it validates with Validate, hands a payload to the submit
// collaborator and, on success, navigates to a destination chosen by role.
package form

import (
	"maps"
	"net/url"
)

// GeneralKey is the reserved error key for form-wide messages.
const GeneralKey = "general"

// Values maps field names to their current values.
type Values map[string]string

// Get returns the value of name, or "" if it was never set.
func (v Values) Get(name string) string {
	return v[name]
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// ValuesFrom copies the first value of each key in a parsed request form.
// Only names declared by the schema are kept.
func ValuesFrom(schema *Schema, src url.Values) Values {
	values := make(Values, len(schema.Fields))
	for _, f := range schema.Fields {
		if vs, ok := src[f.Name]; ok && len(vs) > 0 {
			values[f.Name] = vs[0]
		}
	}
	return values
}

// Errors maps field names (and GeneralKey) to messages.
type Errors map[string]string

// Has reports whether name has an error.
func (e Errors) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// Get returns the message for name.
func (e Errors) Get(name string) string {
	return e[name]
}

// General returns the form-wide message.
func (e Errors) General() string {
	return e[GeneralKey]
}

// Empty reports whether there are no errors at all.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	if e == nil {
		return Errors{}
	}
	return maps.Clone(e)
}

// Store holds field values and the errors currently shown for them.
// It performs no validation and never rejects input.
type Store struct {
	values Values
	errors Errors
}

// NewStore returns a store seeded with initial values.
func NewStore(initial Values) *Store {
	return &Store{values: initial.Clone(), errors: Errors{}}
}

// SetField replaces the value of name and drops any error shown for it.
func (s *Store) SetField(name, value string) {
	s.values[name] = value
	delete(s.errors, name)
}

// Value returns the current value of name, or "" if it was never set.
func (s *Store) Value(name string) string {
	return s.values[name]
}

// Values returns a copy of all values.
func (s *Store) Values() Values {
	return s.values.Clone()
}

// Errors returns a copy of the displayed errors.
func (s *Store) Errors() Errors {
	return s.errors.Clone()
}

// SetErrors replaces the displayed errors.
func (s *Store) SetErrors(errs Errors) {
	s.errors = errs.Clone()
}

// ClearErrors removes every displayed error.
func (s *Store) ClearErrors() {
	s.errors = Errors{}
}
