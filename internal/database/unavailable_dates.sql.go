package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createUnavailableDate = `-- name: CreateUnavailableDate :one
INSERT INTO unavailable_dates (unavailable_date, reason)
VALUES ($1, $2)
RETURNING id, unavailable_date, reason, created_at
`

type CreateUnavailableDateParams struct {
	UnavailableDate pgtype.Date `json:"unavailable_date"`
	Reason          pgtype.Text `json:"reason"`
}

func (q *Queries) CreateUnavailableDate(ctx context.Context, arg CreateUnavailableDateParams) (UnavailableDate, error) {
	row := q.db.QueryRow(ctx, createUnavailableDate, arg.UnavailableDate, arg.Reason)
	var i UnavailableDate
	err := row.Scan(
		&i.ID,
		&i.UnavailableDate,
		&i.Reason,
		&i.CreatedAt,
	)
	return i, err
}

const deleteUnavailableDate = `-- name: DeleteUnavailableDate :execrows
DELETE FROM unavailable_dates WHERE id = $1
`

func (q *Queries) DeleteUnavailableDate(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUnavailableDate, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const isDateUnavailable = `-- name: IsDateUnavailable :one
SELECT EXISTS (SELECT 1 FROM unavailable_dates WHERE unavailable_date = $1)
`

func (q *Queries) IsDateUnavailable(ctx context.Context, unavailableDate pgtype.Date) (bool, error) {
	row := q.db.QueryRow(ctx, isDateUnavailable, unavailableDate)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listUnavailableDates = `-- name: ListUnavailableDates :many
SELECT id, unavailable_date, reason, created_at
FROM unavailable_dates
WHERE ($1::date IS NULL OR unavailable_date >= $1)
ORDER BY unavailable_date
`

func (q *Queries) ListUnavailableDates(ctx context.Context, fromDate pgtype.Date) ([]UnavailableDate, error) {
	rows, err := q.db.Query(ctx, listUnavailableDates, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []UnavailableDate{}
	for rows.Next() {
		var i UnavailableDate
		if err := rows.Scan(
			&i.ID,
			&i.UnavailableDate,
			&i.Reason,
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
