package repository

import (
	"context"

	"github.com/google/uuid"
)

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (load_id, sender_id, body)
VALUES ($1, $2, $3)
RETURNING id, load_id, sender_id, body, created_at`

type CreateMessageParams struct {
	LoadID   uuid.UUID `json:"load_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Body     string    `json:"body"`
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, createMessage, arg.LoadID, arg.SenderID, arg.Body)
	var i Message
	err := row.Scan(
		&i.ID,
		&i.LoadID,
		&i.SenderID,
		&i.Body,
		&i.CreatedAt,
	)
	return i, err
}

const listMessagesByLoad = `-- name: ListMessagesByLoad :many
SELECT m.id, m.load_id, m.sender_id, m.body, m.created_at, u.name
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.load_id = $1
ORDER BY m.created_at ASC`

type ListMessagesByLoadRow struct {
	Message
	SenderName string `json:"sender_name"`
}

func (q *Queries) ListMessagesByLoad(ctx context.Context, loadID uuid.UUID) ([]ListMessagesByLoadRow, error) {
	rows, err := q.db.QueryContext(ctx, listMessagesByLoad, loadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMessagesByLoadRow
	for rows.Next() {
		var i ListMessagesByLoadRow
		if err := rows.Scan(
			&i.ID,
			&i.LoadID,
			&i.SenderID,
			&i.Body,
			&i.CreatedAt,
			&i.SenderName,
		); err != nil {
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
