// Package domain contains core business types and interfaces.
//
// This file defines the User domain type, the two marketplace roles and the
// role-specific profile records that registration produces.
package domain

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role a user registers under.
type Role string

const (
	RoleLoadOwner Role = "load_owner"
	RoleDriver    Role = "driver"
)

// DefaultRole is used when no role has been chosen yet.
const DefaultRole = RoleLoadOwner

// ParseRole converts a raw value (query parameter, form value, JSON field)
// into a Role. Both the snake_case form and the hyphenated URL form are accepted.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load_owner", "load-owner", "loadowner":
		return RoleLoadOwner, true
	case "driver":
		return RoleDriver, true
	}
	return "", false
}

// RoleOrDefault parses s and falls back to DefaultRole.
func RoleOrDefault(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return DefaultRole
}

func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	return r == RoleLoadOwner || r == RoleDriver
}

// Label returns the human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleLoadOwner:
		return "Load Owner"
	case RoleDriver:
		return "Driver"
	}
	return ""
}

// Dashboard returns the destination a user of this role lands on after
// signing in or registering.
func (r Role) Dashboard() Destination {
	if r == RoleDriver {
		return DestinationDriverDashboard
	}
	return DestinationLoadOwnerDashboard
}

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleDriver {
		return RoleLoadOwner
	}
	return RoleDriver
}

// Destination is a logical navigation target. The HTTP layer owns the URL
// each destination maps to.
type Destination string

const (
	DestinationHome               Destination = "home"
	DestinationLogin              Destination = "login"
	DestinationLoadOwnerDashboard Destination = "load_owner_dashboard"
	DestinationDriverDashboard    Destination = "driver_dashboard"
)

// =============================================================================
// Profiles
// =============================================================================

// Profile holds the fields that only one role has. It is implemented by
// LoadOwnerProfile and DriverProfile and nothing else.
type Profile interface {
	Role() Role
	profile()
}

// LoadOwnerProfile is the role-specific record of a load owner.
type LoadOwnerProfile struct {
	Location string `json:"location" validate:"required,max=200"`
}

func (LoadOwnerProfile) Role() Role { return RoleLoadOwner }
func (LoadOwnerProfile) profile()   {}

// DriverProfile is the role-specific record of a driver.
type DriverProfile struct {
	LicenseInfo string      `json:"license_info" validate:"required,max=100"`
	ServiceArea string      `json:"service_area" validate:"required,max=200"`
	Vehicle     VehicleInfo `json:"vehicle_info"`
}

func (DriverProfile) Role() Role { return RoleDriver }
func (DriverProfile) profile()   {}

// VehicleInfo describes a driver's vehicle. It is persisted as JSON.
type VehicleInfo struct {
	Type       string `json:"type" form:"type" validate:"required,max=50"`
	Capacity   string `json:"capacity,omitempty" form:"capacity" validate:"max=50"`
	Dimensions string `json:"dimensions,omitempty" form:"dimensions" validate:"max=100"`
}

// IsZero reports whether no vehicle detail was provided.
func (v VehicleInfo) IsZero() bool {
	return v.Type == "" && v.Capacity == "" && v.Dimensions == ""
}

// =============================================================================
// User
// =============================================================================

// User represents a registered marketplace user.
//
// Profile is never nil for users loaded from storage; its concrete type
// always matches Role.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	Role         Role
	Profile      Profile
	PasswordHash string // Never expose this in API responses
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// IsLoadOwner returns true if the user posts loads.
func (u *User) IsLoadOwner() bool {
	return u.Role == RoleLoadOwner
}

// IsDriver returns true if the user claims loads.
func (u *User) IsDriver() bool {
	return u.Role == RoleDriver
}

// LoadOwner returns the load owner profile, or nil for drivers.
func (u *User) LoadOwner() *LoadOwnerProfile {
	if p, ok := u.Profile.(LoadOwnerProfile); ok {
		return &p
	}
	return nil
}

// Driver returns the driver profile, or nil for load owners.
func (u *User) Driver() *DriverProfile {
	if p, ok := u.Profile.(DriverProfile); ok {
		return &p
	}
	return nil
}

// Session represents an authenticated session.
//
// Sessions are stored in the database with a hashed token.
// The raw token is only given to the client once (at login or registration).
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the parameters for user registration. The role
// is carried by the concrete Profile.
type RegisterParams struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email,max=100"`
	Phone    string  `json:"phone" validate:"required,max=20"`
	Password string  `json:"password" validate:"required,min=8,maxbytes=72"` // bcrypt limit
	Profile  Profile `json:"-" validate:"-"`
}

// Role returns the role selected by the profile.
func (p RegisterParams) Role() Role {
	if p.Profile == nil {
		return ""
	}
	return p.Profile.Role()
}

// RegisterRequest is the flat wire shape of a registration. The browser form
// and the JSON API both decode into it before it is converted into
// RegisterParams.
type RegisterRequest struct {
	Name        string      `json:"name" form:"name"`
	Email       string      `json:"email" form:"email"`
	Phone       string      `json:"phone" form:"phone"`
	UserType    string      `json:"user_type" form:"user_type"`
	Password    string      `json:"password" form:"password"`
	Location    string      `json:"location,omitempty" form:"location"`
	LicenseInfo string      `json:"license_info,omitempty" form:"license_info"`
	ServiceArea string      `json:"service_area,omitempty" form:"service_area"`
	VehicleInfo VehicleInfo `json:"vehicle_info,omitempty" form:"vehicle_info"`
}

// Params converts the request into RegisterParams, building the profile
// that matches the requested user type. Fields of the other role are dropped.
func (r RegisterRequest) Params() (RegisterParams, error) {
	const op = "RegisterRequest.Params"

	role, ok := ParseRole(r.UserType)
	if !ok {
		return RegisterParams{}, NewValidationError(op, "user_type",
			fmt.Sprintf("Invalid user type. Must be '%s' or '%s'", RoleLoadOwner, RoleDriver))
	}

	params := RegisterParams{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:    strings.TrimSpace(r.Phone),
		Password: r.Password,
	}

	switch role {
	case RoleLoadOwner:
		params.Profile = LoadOwnerProfile{Location: strings.TrimSpace(r.Location)}
	case RoleDriver:
		params.Profile = DriverProfile{
			LicenseInfo: strings.TrimSpace(r.LicenseInfo),
			ServiceArea: strings.TrimSpace(r.ServiceArea),
			Vehicle: VehicleInfo{
				Type:       strings.TrimSpace(r.VehicleInfo.Type),
				Capacity:   strings.TrimSpace(r.VehicleInfo.Capacity),
				Dimensions: strings.TrimSpace(r.VehicleInfo.Dimensions),
			},
		}
	}
	return params, nil
}

// LoginParams contains the credentials for signing in.
type LoginParams struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginResult contains the result of a successful login or registration.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// NullFloatValue safely extracts a float pointer from sql.NullFloat64.
func NullFloatValue(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullFloat converts a float pointer to sql.NullFloat64.
func ToNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToNullUUID converts a uuid pointer to uuid.NullUUID.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{Valid: false}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
