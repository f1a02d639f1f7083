package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	UserType     string                `json:"user_type"`
	PasswordHash string                `json:"password_hash"`
	Location     sql.NullString        `json:"location"`
	LicenseInfo  sql.NullString        `json:"license_info"`
	ServiceArea  sql.NullString        `json:"service_area"`
	VehicleInfo  pqtype.NullRawMessage `json:"vehicle_info"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Load struct {
	ID                  uuid.UUID       `json:"id"`
	OwnerID             uuid.UUID       `json:"owner_id"`
	DriverID            uuid.NullUUID   `json:"driver_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	PickupLocation      string          `json:"pickup_location"`
	DeliveryLocation    string          `json:"delivery_location"`
	Status              string          `json:"status"`
	Weight              sql.NullFloat64 `json:"weight"`
	Dimensions          sql.NullString  `json:"dimensions"`
	PickupDate          sql.NullTime    `json:"pickup_date"`
	SpecialRequirements sql.NullString  `json:"special_requirements"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type LoadImage struct {
	ID               uuid.UUID      `json:"id"`
	LoadID           uuid.UUID      `json:"load_id"`
	StorageKey       string         `json:"storage_key"`
	ThumbnailKey     sql.NullString `json:"thumbnail_key"`
	OriginalFilename sql.NullString `json:"original_filename"`
	ContentType      string         `json:"content_type"`
	SizeBytes        int64          `json:"size_bytes"`
	CreatedAt        time.Time      `json:"created_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	LoadID    uuid.UUID `json:"load_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	JobType      string          `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Priority     int32           `json:"priority"`
	Attempts     int32           `json:"attempts"`
	MaxAttempts  int32           `json:"max_attempts"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	StartedAt    sql.NullTime    `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	ErrorMessage sql.NullString  `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}
