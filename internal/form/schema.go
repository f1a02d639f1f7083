package form

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/DukeRupert/loadshare/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Kind selects the input control and the format rules applied to a field.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindPassword Kind = "password" // new password: length rule applies
	KindSecret   Kind = "secret"   // existing password: no length rule
	KindConfirm  Kind = "confirm"  // must equal the field named by Matches
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindTextarea Kind = "textarea"
)

// InputType returns the HTML input type for the kind.
func (k Kind) InputType() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPhone:
		return "tel"
	case KindPassword, KindSecret, KindConfirm:
		return "password"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	}
	return "text"
}

// Field declares one named input of a form.
type Field struct {
	Name        string      `yaml:"name"`
	Label       string      `yaml:"label"`   // used in messages: "<Label> is required"
	Caption     string      `yaml:"caption"` // shown above the input, defaults to Label
	Kind        Kind        `yaml:"kind"`
	Param       string      `yaml:"param"` // payload key, dotted for nested objects
	Required    bool        `yaml:"required"`
	Role        domain.Role `yaml:"role"` // owning role; empty means common to all roles
	Matches     string      `yaml:"matches"`
	Placeholder string      `yaml:"placeholder"`
}

// DisplayCaption returns the caption shown above the input.
func (f Field) DisplayCaption() string {
	if f.Caption != "" {
		return f.Caption
	}
	return f.Label
}

// ActiveFor reports whether the field is shown and validated for role.
func (f Field) ActiveFor(role domain.Role) bool {
	return f.Role == "" || f.Role == role
}

// Schema is the declarative description of a form: its fields and the
// captions and messages the controller shows while submitting.
type Schema struct {
	Name           string  `yaml:"name"`
	Title          string  `yaml:"title"`
	SubmitLabel    string  `yaml:"submit_label"`
	BusyLabel      string  `yaml:"busy_label"`
	SuccessMessage string  `yaml:"success_message"`
	FailureMessage string  `yaml:"failure_message"`
	ConflictField  string  `yaml:"conflict_field"`
	RoleParam      string  `yaml:"role_param"`
	Fields         []Field `yaml:"fields"`
}

// HasRoles reports whether any field belongs to a specific role.
func (s *Schema) HasRoles() bool {
	for _, f := range s.Fields {
		if f.Role != "" {
			return true
		}
	}
	return false
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldForParam returns the field whose payload key is param.
func (s *Schema) FieldForParam(param string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Param != "" && f.Param == param {
			return f, true
		}
	}
	return Field{}, false
}

// ActiveFields returns the fields shown for role, in declaration order.
func (s *Schema) ActiveFields(role domain.Role) []Field {
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.ActiveFor(role) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Validate checks the schema for declaration mistakes.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("form schema: name is required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("form schema %s: field without name", s.Name)
		}
		if f.Name == GeneralKey {
			return fmt.Errorf("form schema %s: field name %q is reserved", s.Name, GeneralKey)
		}
		if seen[f.Name] {
			return fmt.Errorf("form schema %s: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Label == "" {
			return fmt.Errorf("form schema %s: field %q has no label", s.Name, f.Name)
		}
		if f.Role != "" && !f.Role.IsValid() {
			return fmt.Errorf("form schema %s: field %q has unknown role %q", s.Name, f.Name, f.Role)
		}
	}
	for _, f := range s.Fields {
		if f.Kind == KindConfirm && !seen[f.Matches] {
			return fmt.Errorf("form schema %s: field %q matches unknown field %q", s.Name, f.Name, f.Matches)
		}
	}
	return nil
}

// ParseSchema decodes and validates a YAML form definition.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("form schema: %w", err)
	}
	for i := range s.Fields {
		if s.Fields[i].Kind == "" {
			s.Fields[i].Kind = KindText
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var (
	schemasOnce sync.Once
	schemas     map[string]*Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = make(map[string]*Schema)
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemasErr = err
		return
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			schemasErr = err
			return
		}
		s, err := ParseSchema(data)
		if err != nil {
			schemasErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
		schemas[s.Name] = s
	}
}

// Lookup returns a built-in form definition by name.
func Lookup(name string) (*Schema, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("form schema %q not found", name)
	}
	return s, nil
}

// MustLookup is like Lookup but panics on error. Use it for the built-in
// definitions, which are embedded at compile time.
func MustLookup(name string) *Schema {
	s, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names of the built-in forms.
const (
	Register   = "register"
	Login      = "login"
	CreateLoad = "create_load"
)

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
