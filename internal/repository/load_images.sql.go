package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const loadImageColumns = `id, load_id, storage_key, thumbnail_key, original_filename, content_type, size_bytes, created_at`

func scanLoadImage(row interface{ Scan(...interface{}) error }) (LoadImage, error) {
	var i LoadImage
	err := row.Scan(
		&i.ID,
		&i.LoadID,
		&i.StorageKey,
		&i.ThumbnailKey,
		&i.OriginalFilename,
		&i.ContentType,
		&i.SizeBytes,
		&i.CreatedAt,
	)
	return i, err
}

const createLoadImage = `-- name: CreateLoadImage :one
INSERT INTO load_images (id, load_id, storage_key, original_filename, content_type, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + loadImageColumns

type CreateLoadImageParams struct {
	ID               uuid.UUID      `json:"id"`
	LoadID           uuid.UUID      `json:"load_id"`
	StorageKey       string         `json:"storage_key"`
	OriginalFilename sql.NullString `json:"original_filename"`
	ContentType      string         `json:"content_type"`
	SizeBytes        int64          `json:"size_bytes"`
}

func (q *Queries) CreateLoadImage(ctx context.Context, arg CreateLoadImageParams) (LoadImage, error) {
	row := q.db.QueryRowContext(ctx, createLoadImage,
		arg.ID,
		arg.LoadID,
		arg.StorageKey,
		arg.OriginalFilename,
		arg.ContentType,
		arg.SizeBytes,
	)
	return scanLoadImage(row)
}

const getLoadImageByID = `-- name: GetLoadImageByID :one
SELECT ` + loadImageColumns + ` FROM load_images WHERE id = $1`

func (q *Queries) GetLoadImageByID(ctx context.Context, id uuid.UUID) (LoadImage, error) {
	return scanLoadImage(q.db.QueryRowContext(ctx, getLoadImageByID, id))
}

const listLoadImagesByLoad = `-- name: ListLoadImagesByLoad :many
SELECT ` + loadImageColumns + ` FROM load_images WHERE load_id = $1 ORDER BY created_at`

func (q *Queries) ListLoadImagesByLoad(ctx context.Context, loadID uuid.UUID) ([]LoadImage, error) {
	rows, err := q.db.QueryContext(ctx, listLoadImagesByLoad, loadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LoadImage
	for rows.Next() {
		i, err := scanLoadImage(rows)
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

const countLoadImages = `-- name: CountLoadImages :one
SELECT COUNT(*) FROM load_images WHERE load_id = $1`

func (q *Queries) CountLoadImages(ctx context.Context, loadID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countLoadImages, loadID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const setLoadImageThumbnail = `-- name: SetLoadImageThumbnail :exec
UPDATE load_images SET thumbnail_key = $2 WHERE id = $1`

type SetLoadImageThumbnailParams struct {
	ID           uuid.UUID      `json:"id"`
	ThumbnailKey sql.NullString `json:"thumbnail_key"`
}

func (q *Queries) SetLoadImageThumbnail(ctx context.Context, arg SetLoadImageThumbnailParams) error {
	_, err := q.db.ExecContext(ctx, setLoadImageThumbnail, arg.ID, arg.ThumbnailKey)
	return err
}
