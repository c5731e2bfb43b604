package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/readers-haven/api/internal/config"
	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/notify"
)

// reminderColumns must exist on orders before a sweep can run.
var reminderColumns = []string{
	"payment_reminder_count",
	"payment_reminder_last_sent_at",
	"payment_reminder_claimed_at",
}

// ReminderStore defines the DB methods needed for the reminder sweep.
// Satisfied by *database.Queries; narrow interface for testability.
type ReminderStore interface {
	MissingOrderColumns(ctx context.Context, columns []string) ([]string, error)
	ListReminderCandidates(ctx context.Context, arg database.ListReminderCandidatesParams) ([]database.Order, error)
	ClaimReminder(ctx context.Context, arg database.ClaimReminderParams) (int64, error)
	RecordReminderSent(ctx context.Context, arg database.RecordReminderSentParams) error
	ReleaseReminderClaim(ctx context.Context, id int64) error
}

// MissingColumnsError means the reminder migration has not been applied.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing reminder columns on orders (%s), run the payment reminder migration",
		strings.Join(e.Columns, ", "))
}

// SweepResult summarises one reminder sweep.
type SweepResult struct {
	Disabled bool `json:"disabled,omitempty"`
	Checked  int  `json:"checked"`
	Sent     int  `json:"sent"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
}

// ReminderService emails customers whose manual payments are still unconfirmed.
type ReminderService struct {
	store     ReminderStore
	notifier  notify.Notifier
	templates *notify.Templates
	cfg       config.ReminderConfig
	now       func() time.Time
}

// NewReminderService creates a new ReminderService.
func NewReminderService(store ReminderStore, n notify.Notifier, t *notify.Templates, cfg config.ReminderConfig) *ReminderService {
	return &ReminderService{store: store, notifier: n, templates: t, cfg: cfg, now: time.Now}
}

// Sweep sends at most one reminder to each due order. An order is due once
// FirstDelay has passed since it was placed and RepeatInterval since its
// last reminder, until MaxCount reminders have gone out. Each order is
// claimed before sending so overlapping sweeps never email it twice.
func (s *ReminderService) Sweep(ctx context.Context) (*SweepResult, error) {
	if !s.cfg.Enabled {
		return &SweepResult{Disabled: true}, nil
	}

	missing, err := s.store.MissingOrderColumns(ctx, reminderColumns)
	if err != nil {
		return nil, fmt.Errorf("check reminder columns: %w", err)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	now := s.now()
	candidates, err := s.store.ListReminderCandidates(ctx, database.ListReminderCandidatesParams{
		CreatedBefore:  now.Add(-s.cfg.FirstDelay),
		LastSentBefore: now.Add(-s.cfg.RepeatInterval),
		MaxCount:       int32(s.cfg.MaxCount),
		ClaimedBefore:  now.Add(-s.cfg.ClaimLease),
		Limit:          int32(s.cfg.BatchLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}

	result := &SweepResult{Checked: len(candidates)}
	for _, order := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		claimed, err := s.store.ClaimReminder(ctx, database.ClaimReminderParams{
			ID:          order.ID,
			ClaimedAt:   now,
			StaleBefore: now.Add(-s.cfg.ClaimLease),
		})
		if err != nil {
			log.Printf("ERROR: claim reminder for order %s: %v", order.OrderNumber, err)
			result.Failed++
			continue
		}
		if claimed == 0 {
			result.Skipped++
			continue
		}

		if err := s.send(ctx, order); err != nil {
			log.Printf("ERROR: payment reminder for order %s: %v", order.OrderNumber, err)
			result.Failed++
			if err := s.store.ReleaseReminderClaim(ctx, order.ID); err != nil {
				log.Printf("ERROR: release reminder claim for order %s: %v", order.OrderNumber, err)
			}
			continue
		}

		if err := s.store.RecordReminderSent(ctx, database.RecordReminderSentParams{ID: order.ID, SentAt: s.now()}); err != nil {
			// The email went out; the claim lease expires on its own.
			log.Printf("ERROR: record reminder for order %s: %v", order.OrderNumber, err)
		}
		result.Sent++
	}

	log.Printf("payment reminders: checked=%d sent=%d failed=%d skipped=%d",
		result.Checked, result.Sent, result.Failed, result.Skipped)
	return result, nil
}

func (s *ReminderService) send(ctx context.Context, order database.Order) error {
	msg, err := s.templates.PaymentReminder(NewOrderSummary(order, nil))
	if err != nil {
		return fmt.Errorf("render reminder: %w", err)
	}
	return s.notifier.Send(ctx, msg)
}
