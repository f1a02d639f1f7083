package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const userColumns = `id, name, email, phone, user_type, password_hash, location, license_info, service_area, vehicle_info, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.UserType,
		&i.PasswordHash,
		&i.Location,
		&i.LicenseInfo,
		&i.ServiceArea,
		&i.VehicleInfo,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, email, phone, user_type, password_hash, location, license_info, service_area, vehicle_info)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	UserType     string                `json:"user_type"`
	PasswordHash string                `json:"password_hash"`
	Location     sql.NullString        `json:"location"`
	LicenseInfo  sql.NullString        `json:"license_info"`
	ServiceArea  sql.NullString        `json:"service_area"`
	VehicleInfo  pqtype.NullRawMessage `json:"vehicle_info"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.UserType,
		arg.PasswordHash,
		arg.Location,
		arg.LicenseInfo,
		arg.ServiceArea,
		arg.VehicleInfo,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const emailExists = `-- name: EmailExists :one
SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

func (q *Queries) EmailExists(ctx context.Context, email string) (bool, error) {
	row := q.db.QueryRowContext(ctx, emailExists, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countUsersByType = `-- name: CountUsersByType :one
SELECT COUNT(*) FROM users WHERE user_type = $1`

func (q *Queries) CountUsersByType(ctx context.Context, userType string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsersByType, userType)
	var count int64
	err := row.Scan(&count)
	return count, err
}
