package database

import (
	"context"
	"time"
)

const claimReminder = `-- name: ClaimReminder :execrows
UPDATE orders
SET payment_reminder_claimed_at = $2
WHERE id = $1
  AND payment_status = 'awaiting_confirmation'
  AND (payment_reminder_claimed_at IS NULL OR payment_reminder_claimed_at <= $3)
`

type ClaimReminderParams struct {
	ID          int64     `json:"id"`
	ClaimedAt   time.Time `json:"claimed_at"`
	StaleBefore time.Time `json:"stale_before"`
}

// ClaimReminder returns 0 when another sweep holds a live claim on the order.
func (q *Queries) ClaimReminder(ctx context.Context, arg ClaimReminderParams) (int64, error) {
	result, err := q.db.Exec(ctx, claimReminder, arg.ID, arg.ClaimedAt, arg.StaleBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listReminderCandidates = `-- name: ListReminderCandidates :many
SELECT id, order_number, customer_id, customer_name, customer_email, total_amount, delivery_method_id, delivery_cost, shipping_address, delivery_details, notes, payment_method, payment_status, status, payment_verified_at, payment_verified_by, payment_verification_notes, payment_reference, created_at, updated_at, payment_reminder_count, payment_reminder_last_sent_at, payment_reminder_claimed_at
FROM orders
WHERE payment_status = 'awaiting_confirmation'
  AND payment_method IN ('bank_transfer', 'mobile_money')
  AND created_at <= $1
  AND (payment_reminder_last_sent_at IS NULL OR payment_reminder_last_sent_at <= $2)
  AND payment_reminder_count < $3
  AND (payment_reminder_claimed_at IS NULL OR payment_reminder_claimed_at <= $4)
ORDER BY created_at ASC, id ASC
LIMIT $5
`

type ListReminderCandidatesParams struct {
	CreatedBefore  time.Time `json:"created_before"`
	LastSentBefore time.Time `json:"last_sent_before"`
	MaxCount       int32     `json:"max_count"`
	ClaimedBefore  time.Time `json:"claimed_before"`
	Limit          int32     `json:"limit"`
}

func (q *Queries) ListReminderCandidates(ctx context.Context, arg ListReminderCandidatesParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listReminderCandidates,
		arg.CreatedBefore,
		arg.LastSentBefore,
		arg.MaxCount,
		arg.ClaimedBefore,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const missingOrderColumns = `-- name: MissingOrderColumns :many
SELECT required.name::text
FROM unnest($1::text[]) AS required(name)
WHERE NOT EXISTS (
    SELECT 1 FROM information_schema.columns c
    WHERE c.table_schema = current_schema()
      AND c.table_name = 'orders'
      AND c.column_name = required.name
)
ORDER BY required.name
`

func (q *Queries) MissingOrderColumns(ctx context.Context, columns []string) ([]string, error) {
	rows, err := q.db.Query(ctx, missingOrderColumns, columns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const recordReminderSent = `-- name: RecordReminderSent :exec
UPDATE orders
SET payment_reminder_count = payment_reminder_count + 1,
    payment_reminder_last_sent_at = $2,
    payment_reminder_claimed_at = NULL
WHERE id = $1
`

type RecordReminderSentParams struct {
	ID     int64     `json:"id"`
	SentAt time.Time `json:"sent_at"`
}

func (q *Queries) RecordReminderSent(ctx context.Context, arg RecordReminderSentParams) error {
	_, err := q.db.Exec(ctx, recordReminderSent, arg.ID, arg.SentAt)
	return err
}

const releaseReminderClaim = `-- name: ReleaseReminderClaim :exec
UPDATE orders SET payment_reminder_claimed_at = NULL WHERE id = $1
`

func (q *Queries) ReleaseReminderClaim(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, releaseReminderClaim, id)
	return err
}
