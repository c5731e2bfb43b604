package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/validate"
)

const (
	maxBookingRetries       = 3
	bookingNumberConstraint = "bookings_booking_number_key"
	activeSlotConstraint    = "bookings_active_slot_key"
	maxBookingMessageLen    = 1000
)

// slotCatalog is the fixed set of half-hour session starts.
var slotCatalog = []string{
	"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// BookingStore defines the DB methods needed for bookings.
// Satisfied by *database.Queries; narrow interface for testability.
type BookingStore interface {
	IsDateUnavailable(ctx context.Context, unavailableDate pgtype.Date) (bool, error)
	GetActiveBookingAt(ctx context.Context, arg database.GetActiveBookingAtParams) (database.Booking, error)
	CreateBooking(ctx context.Context, arg database.CreateBookingParams) (database.Booking, error)
	ListBookedTimes(ctx context.Context, bookingDate pgtype.Date) ([]string, error)
	UpdateBookingStatus(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error)
	DeleteBooking(ctx context.Context, id int64) (int64, error)
}

// NewBookingStore creates a BookingStore from a DBTX (pool or tx).
type NewBookingStore func(db database.DBTX) BookingStore

// CreateBookingRequest is the raw booking form.
type CreateBookingRequest struct {
	Name    string
	Email   string
	Phone   string
	Date    string
	Time    string
	Message string
}

// SlotsResult lists the open session times for a date. Available is false
// when the whole date is closed, with Message saying why.
type SlotsResult struct {
	Date      string
	Available bool
	Message   string
	Slots     []string
}

// BookingService handles counselling bookings.
type BookingService struct {
	pool     TxBeginner
	store    BookingStore
	newStore NewBookingStore
	now      func() time.Time
}

// NewBookingService creates a BookingService. store serves reads and
// single-statement writes; newStore binds queries to a transaction.
func NewBookingService(pool TxBeginner, store BookingStore, newStore NewBookingStore) *BookingService {
	return &BookingService{pool: pool, store: store, newStore: newStore, now: time.Now}
}

// CreateBooking validates the form and books the slot if it is free.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*database.Booking, error) {
	name, ok := validate.Name(req.Name)
	if !ok {
		return nil, invalid("name", "invalid name format, use letters, spaces, hyphens and apostrophes only")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return nil, invalid("email", "invalid email address")
	}
	var phone string
	if req.Phone != "" {
		if phone, ok = validate.Phone(req.Phone); !ok {
			return nil, invalid("phone", "invalid phone number")
		}
	}
	date, ok := validate.Date(req.Date, s.now())
	if !ok {
		return nil, invalid("date", "invalid date format or date is in the past")
	}
	slot, ok := validate.Time(req.Time)
	if !ok {
		return nil, invalid("time", "invalid time format (HH:MM)")
	}
	message, ok := validate.OptionalText(req.Message, maxBookingMessageLen)
	if !ok {
		return nil, invalid("message", fmt.Sprintf("message is too long (max %d characters)", maxBookingMessageLen))
	}

	params := database.CreateBookingParams{
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: optionalText(phone),
		BookingDate:   pgtype.Date{Time: date, Valid: true},
		BookingTime:   slot,
		Notes:         optionalText(message),
	}

	var lastErr error
	for attempt := 0; attempt < maxBookingRetries; attempt++ {
		booking, err := s.createBookingTx(ctx, params)
		if err == nil {
			return booking, nil
		}
		if isUniqueViolation(err, bookingNumberConstraint) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *BookingService) createBookingTx(ctx context.Context, params database.CreateBookingParams) (*database.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	blocked, err := store.IsDateUnavailable(ctx, params.BookingDate)
	if err != nil {
		return nil, fmt.Errorf("check unavailable date: %w", err)
	}
	if blocked {
		return nil, ErrDateUnavailable
	}

	_, err = store.GetActiveBookingAt(ctx, database.GetActiveBookingAtParams{
		BookingDate: params.BookingDate,
		BookingTime: params.BookingTime,
	})
	if err == nil {
		return nil, ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check slot: %w", err)
	}

	params.BookingNumber, err = newReference("BOOK", s.now())
	if err != nil {
		return nil, err
	}
	booking, err := store.CreateBooking(ctx, params)
	if err != nil {
		// A concurrent request took the slot between the check and the insert.
		if isUniqueViolation(err, activeSlotConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &booking, nil
}

// AvailableSlots lists the free session times on a date. Weekends and
// blocked dates have no slots.
func (s *BookingService) AvailableSlots(ctx context.Context, rawDate string) (*SlotsResult, error) {
	if rawDate == "" {
		return nil, invalid("date", "date parameter required")
	}
	date, ok := validate.CalendarDate(rawDate)
	if !ok {
		return nil, invalid("date", "invalid date format")
	}
	result := &SlotsResult{Date: date.Format(validate.DateLayout), Slots: []string{}}

	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		result.Message = "This date is a weekend"
		return result, nil
	}

	pgDate := pgtype.Date{Time: date, Valid: true}
	blocked, err := s.store.IsDateUnavailable(ctx, pgDate)
	if err != nil {
		return nil, fmt.Errorf("check unavailable date: %w", err)
	}
	if blocked {
		result.Message = "This date is not available"
		return result, nil
	}

	booked, err := s.store.ListBookedTimes(ctx, pgDate)
	if err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	for _, slot := range slotCatalog {
		if !taken[slot] {
			result.Slots = append(result.Slots, slot)
		}
	}
	result.Available = true
	return result, nil
}

// UpdateBookingStatus sets a booking's status and optionally its notes.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id int64, status, notes string) (*database.Booking, error) {
	if !validate.OneOf(status, enum.BookingStatusPending, enum.BookingStatusConfirmed,
		enum.BookingStatusCompleted, enum.BookingStatusCancelled) {
		return nil, invalid("status", "invalid status")
	}
	notes, ok := validate.OptionalText(notes, maxBookingMessageLen)
	if !ok {
		return nil, invalid("notes", fmt.Sprintf("notes are too long (max %d characters)", maxBookingMessageLen))
	}

	booking, err := s.store.UpdateBookingStatus(ctx, database.UpdateBookingStatusParams{
		ID:     id,
		Status: status,
		Notes:  optionalText(notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		// Reactivating a cancelled booking whose slot was taken since.
		if isUniqueViolation(err, activeSlotConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return &booking, nil
}

// DeleteBooking removes a booking.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	n, err := s.store.DeleteBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
