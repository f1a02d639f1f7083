// Package domain contains core business types and interfaces.
//
// This file defines the Load domain type: a transportation request posted
// by a load owner and claimed by a driver.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Load Status
// =============================================================================

// LoadStatus represents the lifecycle state of a load.
type LoadStatus string

const (
	// LoadStatusPosted indicates the load is visible to drivers.
	LoadStatusPosted LoadStatus = "posted"

	// LoadStatusClaimed indicates a driver has claimed the load and is
	// waiting for the owner to accept.
	LoadStatusClaimed LoadStatus = "claimed"

	// LoadStatusAccepted indicates the owner accepted the driver's claim.
	LoadStatusAccepted LoadStatus = "accepted"

	LoadStatusInTransit LoadStatus = "in_transit"
	LoadStatusDelivered LoadStatus = "delivered"
)

// String returns the string representation of the status.
func (s LoadStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s LoadStatus) IsValid() bool {
	switch s {
	case LoadStatusPosted, LoadStatusClaimed, LoadStatusAccepted,
		LoadStatusInTransit, LoadStatusDelivered:
		return true
	}
	return false
}

// Label returns a human-readable status name.
func (s LoadStatus) Label() string {
	if s == LoadStatusInTransit {
		return "In Transit"
	}
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// CanTransitionTo checks if the load can move to the target status.
//
// Valid transitions:
//   - posted -> claimed (driver claims)
//   - claimed -> accepted (owner accepts the claim)
//   - claimed -> posted (owner declines the claim)
//   - accepted -> in_transit -> delivered (driver progress)
func (s LoadStatus) CanTransitionTo(target LoadStatus) bool {
	switch s {
	case LoadStatusPosted:
		return target == LoadStatusClaimed
	case LoadStatusClaimed:
		return target == LoadStatusAccepted || target == LoadStatusPosted
	case LoadStatusAccepted:
		return target == LoadStatusInTransit
	case LoadStatusInTransit:
		return target == LoadStatusDelivered
	}
	return false
}

// ActorFor returns the role allowed to move a load into the target status.
func (s LoadStatus) ActorFor(target LoadStatus) Role {
	switch target {
	case LoadStatusClaimed, LoadStatusInTransit, LoadStatusDelivered:
		return RoleDriver
	}
	return RoleLoadOwner
}

// =============================================================================
// Load
// =============================================================================

// Load represents a transportation request.
type Load struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	OwnerName           string
	DriverID            *uuid.UUID
	Title               string
	Description         string
	PickupLocation      string
	DeliveryLocation    string
	Status              LoadStatus
	Weight              *float64 // kilograms
	Dimensions          string   // "LxWxH in cm"
	PickupDate          *time.Time
	SpecialRequirements string
	Images              []LoadImage
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TransitionTo moves the load into the target status if allowed.
func (l *Load) TransitionTo(target LoadStatus) error {
	if !l.Status.CanTransitionTo(target) {
		return Errorf(EINVALID, "load.transition", "cannot transition load from %s to %s", l.Status, target)
	}
	l.Status = target
	return nil
}

// IsOwnedBy returns true if the user posted this load.
func (l *Load) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// IsAssignedTo returns true if the user is the load's driver.
func (l *Load) IsAssignedTo(userID uuid.UUID) bool {
	return l.DriverID != nil && *l.DriverID == userID
}

// IsParticipant returns true if the user may see the load's conversation.
func (l *Load) IsParticipant(userID uuid.UUID) bool {
	return l.IsOwnedBy(userID) || l.IsAssignedTo(userID)
}

// WeightLabel formats the weight for display.
func (l *Load) WeightLabel() string {
	if l.Weight == nil {
		return ""
	}
	return strconv.FormatFloat(*l.Weight, 'f', -1, 64) + " kg"
}

// CreateLoadParams contains the parameters for posting a load.
type CreateLoadParams struct {
	OwnerID             uuid.UUID  `json:"-" validate:"required"`
	Title               string     `json:"title" validate:"required,max=200"`
	Description         string     `json:"description" validate:"required"`
	PickupLocation      string     `json:"pickup_location" validate:"required,max=300"`
	DeliveryLocation    string     `json:"delivery_location" validate:"required,max=300"`
	Weight              *float64   `json:"weight" validate:"omitempty,gt=0"`
	Dimensions          string     `json:"dimensions" validate:"max=100"`
	PickupDate          *time.Time `json:"pickup_date"`
	SpecialRequirements string     `json:"special_requirements"`
}

// CreateLoadRequest is the flat wire shape of a new load.
type CreateLoadRequest struct {
	Title               string   `json:"title" form:"title"`
	Description         string   `json:"description" form:"description"`
	PickupLocation      string   `json:"pickup_location" form:"pickup_location"`
	DeliveryLocation    string   `json:"delivery_location" form:"delivery_location"`
	Weight              *float64 `json:"weight,omitempty" form:"weight"`
	Dimensions          string   `json:"dimensions,omitempty" form:"dimensions"`
	PickupDate          string   `json:"pickup_date,omitempty" form:"pickup_date"`
	SpecialRequirements string   `json:"special_requirements,omitempty" form:"special_requirements"`
}

// Params converts the request into CreateLoadParams for the given owner.
// Pickup dates are accepted as YYYY-MM-DD or RFC 3339.
func (r CreateLoadRequest) Params(ownerID uuid.UUID) (CreateLoadParams, error) {
	const op = "CreateLoadRequest.Params"

	params := CreateLoadParams{
		OwnerID:             ownerID,
		Title:               strings.TrimSpace(r.Title),
		Description:         strings.TrimSpace(r.Description),
		PickupLocation:      strings.TrimSpace(r.PickupLocation),
		DeliveryLocation:    strings.TrimSpace(r.DeliveryLocation),
		Weight:              r.Weight,
		Dimensions:          strings.TrimSpace(r.Dimensions),
		SpecialRequirements: strings.TrimSpace(r.SpecialRequirements),
	}

	if raw := strings.TrimSpace(r.PickupDate); raw != "" {
		t, err := ParsePickupDate(raw)
		if err != nil {
			return CreateLoadParams{}, NewValidationError(op, "pickup_date", "Pickup date must be a valid date")
		}
		params.PickupDate = &t
	}
	return params, nil
}

// PickupDateLayout is the date format used by HTML date inputs.
const PickupDateLayout = "2006-01-02"

// ParsePickupDate parses a date-only or RFC 3339 value in the local zone.
func ParsePickupDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(PickupDateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// =============================================================================
// Messages
// =============================================================================

// Message is a note exchanged between a load's owner and its driver.
type Message struct {
	ID         uuid.UUID
	LoadID     uuid.UUID
	SenderID   uuid.UUID
	SenderName string
	Body       string
	CreatedAt  time.Time
}

// SendMessageParams contains the parameters for posting a message.
type SendMessageParams struct {
	LoadID   uuid.UUID `json:"load_id" validate:"required"`
	SenderID uuid.UUID `json:"-" validate:"required"`
	Body     string    `json:"message" validate:"required,max=2000"`
}
