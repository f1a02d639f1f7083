package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const loadColumns = `l.id, l.owner_id, l.driver_id, l.title, l.description, l.pickup_location, l.delivery_location,
       l.status, l.weight, l.dimensions, l.pickup_date, l.special_requirements, l.created_at, l.updated_at`

// LoadWithOwner is a load row joined with its owner's name.
type LoadWithOwner struct {
	Load
	OwnerName string `json:"owner_name"`
}

func scanLoad(row interface{ Scan(...interface{}) error }) (Load, error) {
	var i Load
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.DriverID,
		&i.Title,
		&i.Description,
		&i.PickupLocation,
		&i.DeliveryLocation,
		&i.Status,
		&i.Weight,
		&i.Dimensions,
		&i.PickupDate,
		&i.SpecialRequirements,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanLoadWithOwner(row interface{ Scan(...interface{}) error }) (LoadWithOwner, error) {
	var i LoadWithOwner
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.DriverID,
		&i.Title,
		&i.Description,
		&i.PickupLocation,
		&i.DeliveryLocation,
		&i.Status,
		&i.Weight,
		&i.Dimensions,
		&i.PickupDate,
		&i.SpecialRequirements,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.OwnerName,
	)
	return i, err
}

func (q *Queries) listLoads(ctx context.Context, query string, args ...interface{}) ([]LoadWithOwner, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LoadWithOwner
	for rows.Next() {
		i, err := scanLoadWithOwner(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createLoad = `-- name: CreateLoad :one
INSERT INTO loads AS l (owner_id, title, description, pickup_location, delivery_location,
                        weight, dimensions, pickup_date, special_requirements)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + loadColumns

type CreateLoadParams struct {
	OwnerID             uuid.UUID       `json:"owner_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	PickupLocation      string          `json:"pickup_location"`
	DeliveryLocation    string          `json:"delivery_location"`
	Weight              sql.NullFloat64 `json:"weight"`
	Dimensions          sql.NullString  `json:"dimensions"`
	PickupDate          sql.NullTime    `json:"pickup_date"`
	SpecialRequirements sql.NullString  `json:"special_requirements"`
}

func (q *Queries) CreateLoad(ctx context.Context, arg CreateLoadParams) (Load, error) {
	row := q.db.QueryRowContext(ctx, createLoad,
		arg.OwnerID,
		arg.Title,
		arg.Description,
		arg.PickupLocation,
		arg.DeliveryLocation,
		arg.Weight,
		arg.Dimensions,
		arg.PickupDate,
		arg.SpecialRequirements,
	)
	return scanLoad(row)
}

const getLoadByID = `-- name: GetLoadByID :one
SELECT ` + loadColumns + `, u.name
FROM loads l
JOIN users u ON u.id = l.owner_id
WHERE l.id = $1`

func (q *Queries) GetLoadByID(ctx context.Context, id uuid.UUID) (LoadWithOwner, error) {
	return scanLoadWithOwner(q.db.QueryRowContext(ctx, getLoadByID, id))
}

const listLoadsByOwner = `-- name: ListLoadsByOwner :many
SELECT ` + loadColumns + `, u.name
FROM loads l
JOIN users u ON u.id = l.owner_id
WHERE l.owner_id = $1
ORDER BY l.created_at DESC
LIMIT $2 OFFSET $3`

type ListLoadsByOwnerParams struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Limit   int32     `json:"limit"`
	Offset  int32     `json:"offset"`
}

func (q *Queries) ListLoadsByOwner(ctx context.Context, arg ListLoadsByOwnerParams) ([]LoadWithOwner, error) {
	return q.listLoads(ctx, listLoadsByOwner, arg.OwnerID, arg.Limit, arg.Offset)
}

const listLoadsByStatus = `-- name: ListLoadsByStatus :many
SELECT ` + loadColumns + `, u.name
FROM loads l
JOIN users u ON u.id = l.owner_id
WHERE l.status = $1
ORDER BY l.pickup_date ASC NULLS LAST, l.created_at DESC
LIMIT $2 OFFSET $3`

type ListLoadsByStatusParams struct {
	Status string `json:"status"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) ListLoadsByStatus(ctx context.Context, arg ListLoadsByStatusParams) ([]LoadWithOwner, error) {
	return q.listLoads(ctx, listLoadsByStatus, arg.Status, arg.Limit, arg.Offset)
}

const listLoadsByDriver = `-- name: ListLoadsByDriver :many
SELECT ` + loadColumns + `, u.name
FROM loads l
JOIN users u ON u.id = l.owner_id
WHERE l.driver_id = $1
ORDER BY l.updated_at DESC
LIMIT $2 OFFSET $3`

type ListLoadsByDriverParams struct {
	DriverID uuid.UUID `json:"driver_id"`
	Limit    int32     `json:"limit"`
	Offset   int32     `json:"offset"`
}

func (q *Queries) ListLoadsByDriver(ctx context.Context, arg ListLoadsByDriverParams) ([]LoadWithOwner, error) {
	return q.listLoads(ctx, listLoadsByDriver, arg.DriverID, arg.Limit, arg.Offset)
}

const claimLoad = `-- name: ClaimLoad :one
UPDATE loads AS l
SET driver_id = $2, status = 'claimed', updated_at = NOW()
WHERE l.id = $1 AND l.status = 'posted' AND l.driver_id IS NULL
RETURNING ` + loadColumns

type ClaimLoadParams struct {
	ID       uuid.UUID `json:"id"`
	DriverID uuid.UUID `json:"driver_id"`
}

// ClaimLoad assigns a driver to a posted load. It returns sql.ErrNoRows when
// the load is missing or no longer posted.
func (q *Queries) ClaimLoad(ctx context.Context, arg ClaimLoadParams) (Load, error) {
	return scanLoad(q.db.QueryRowContext(ctx, claimLoad, arg.ID, arg.DriverID))
}

const updateLoadStatus = `-- name: UpdateLoadStatus :one
UPDATE loads AS l
SET status = $3,
    driver_id = CASE WHEN $3 = 'posted' THEN NULL ELSE l.driver_id END,
    updated_at = $4
WHERE l.id = $1 AND l.status = $2
RETURNING ` + loadColumns

type UpdateLoadStatusParams struct {
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateLoadStatus moves a load from one status to another. It returns
// sql.ErrNoRows when the load is not in the expected status.
func (q *Queries) UpdateLoadStatus(ctx context.Context, arg UpdateLoadStatusParams) (Load, error) {
	return scanLoad(q.db.QueryRowContext(ctx, updateLoadStatus, arg.ID, arg.From, arg.To, arg.UpdatedAt))
}

const countLoadsByOwnerAndStatus = `-- name: CountLoadsByOwnerAndStatus :many
SELECT status, COUNT(*) FROM loads WHERE owner_id = $1 GROUP BY status`

type CountLoadsByOwnerAndStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountLoadsByOwnerAndStatus(ctx context.Context, ownerID uuid.UUID) ([]CountLoadsByOwnerAndStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countLoadsByOwnerAndStatus, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountLoadsByOwnerAndStatusRow
	for rows.Next() {
		var i CountLoadsByOwnerAndStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
