package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createDeliveryOption = `-- name: CreateDeliveryOption :one
INSERT INTO delivery_options (name, description, delivery_time_min, delivery_time_max, cost, is_active, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, description, delivery_time_min, delivery_time_max, cost, is_active, sort_order, created_at
`

type CreateDeliveryOptionParams struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	DeliveryTimeMin int32          `json:"delivery_time_min"`
	DeliveryTimeMax int32          `json:"delivery_time_max"`
	Cost            pgtype.Numeric `json:"cost"`
	IsActive        bool           `json:"is_active"`
	SortOrder       int32          `json:"sort_order"`
}

func (q *Queries) CreateDeliveryOption(ctx context.Context, arg CreateDeliveryOptionParams) (DeliveryOption, error) {
	row := q.db.QueryRow(ctx, createDeliveryOption,
		arg.Name,
		arg.Description,
		arg.DeliveryTimeMin,
		arg.DeliveryTimeMax,
		arg.Cost,
		arg.IsActive,
		arg.SortOrder,
	)
	var i DeliveryOption
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DeliveryTimeMin,
		&i.DeliveryTimeMax,
		&i.Cost,
		&i.IsActive,
		&i.SortOrder,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveDeliveryOption = `-- name: GetActiveDeliveryOption :one
SELECT id, name, description, delivery_time_min, delivery_time_max, cost, is_active, sort_order, created_at
FROM delivery_options
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetActiveDeliveryOption(ctx context.Context, id int64) (DeliveryOption, error) {
	row := q.db.QueryRow(ctx, getActiveDeliveryOption, id)
	var i DeliveryOption
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DeliveryTimeMin,
		&i.DeliveryTimeMax,
		&i.Cost,
		&i.IsActive,
		&i.SortOrder,
		&i.CreatedAt,
	)
	return i, err
}

const listDeliveryOptions = `-- name: ListDeliveryOptions :many
SELECT id, name, description, delivery_time_min, delivery_time_max, cost, is_active, sort_order, created_at
FROM delivery_options
WHERE ($1::boolean IS NULL OR is_active = $1)
ORDER BY sort_order, cost
`

func (q *Queries) ListDeliveryOptions(ctx context.Context, isActive pgtype.Bool) ([]DeliveryOption, error) {
	rows, err := q.db.Query(ctx, listDeliveryOptions, isActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DeliveryOption{}
	for rows.Next() {
		var i DeliveryOption
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.DeliveryTimeMin,
			&i.DeliveryTimeMax,
			&i.Cost,
			&i.IsActive,
			&i.SortOrder,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateDeliveryOption = `-- name: UpdateDeliveryOption :one
UPDATE delivery_options
SET name = $2, description = $3, delivery_time_min = $4, delivery_time_max = $5, cost = $6, is_active = $7, sort_order = $8
WHERE id = $1
RETURNING id, name, description, delivery_time_min, delivery_time_max, cost, is_active, sort_order, created_at
`

type UpdateDeliveryOptionParams struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	DeliveryTimeMin int32          `json:"delivery_time_min"`
	DeliveryTimeMax int32          `json:"delivery_time_max"`
	Cost            pgtype.Numeric `json:"cost"`
	IsActive        bool           `json:"is_active"`
	SortOrder       int32          `json:"sort_order"`
}

func (q *Queries) UpdateDeliveryOption(ctx context.Context, arg UpdateDeliveryOptionParams) (DeliveryOption, error) {
	row := q.db.QueryRow(ctx, updateDeliveryOption,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.DeliveryTimeMin,
		arg.DeliveryTimeMax,
		arg.Cost,
		arg.IsActive,
		arg.SortOrder,
	)
	var i DeliveryOption
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DeliveryTimeMin,
		&i.DeliveryTimeMax,
		&i.Cost,
		&i.IsActive,
		&i.SortOrder,
		&i.CreatedAt,
	)
	return i, err
}
