package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/enum"
	"github.com/readers-haven/api/internal/validate"
)

const (
	maxVerificationNotesLen = 1000
	maxPaymentReferenceLen  = 100
)

var amountTolerance = decimal.RequireFromString("0.01")

// PaymentStore defines the DB methods needed to verify a payment.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	MarkPaymentVerified(ctx context.Context, arg database.MarkPaymentVerifiedParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// VerifyPaymentRequest confirms that an order has been paid.
// OrderNumber, RequireMethod and Amount are optional cross-checks.
type VerifyPaymentRequest struct {
	OrderID       int64
	OrderNumber   string
	RequireMethod string
	Notes         string
	Reference     string
	Amount        any
	VerifiedBy    string
}

// PaymentService records manual payment confirmations.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore}
}

// Verify marks the order's payment completed and moves a pending order to
// processing. A second verification of the same order fails with
// ErrAlreadyVerified.
func (s *PaymentService) Verify(ctx context.Context, req VerifyPaymentRequest) (*OrderDetail, error) {
	notes, ok := validate.OptionalText(req.Notes, maxVerificationNotesLen)
	if !ok {
		return nil, invalid("notes", fmt.Sprintf("notes are too long (max %d characters)", maxVerificationNotesLen))
	}
	reference, ok := validate.OptionalText(req.Reference, maxPaymentReferenceLen)
	if !ok {
		return nil, invalid("reference", fmt.Sprintf("reference is too long (max %d characters)", maxPaymentReferenceLen))
	}
	var amount *decimal.Decimal
	if !isEmptyValue(req.Amount) {
		a, ok := validate.Price(req.Amount, decimal.Zero, maxOrderTotal)
		if !ok {
			return nil, invalid("amount", "invalid payment amount")
		}
		amount = &a
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if req.OrderNumber != "" && req.OrderNumber != order.OrderNumber {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == enum.PaymentStatusCompleted {
		return nil, ErrAlreadyVerified
	}
	if req.RequireMethod != "" {
		if order.PaymentMethod != req.RequireMethod {
			return nil, ErrPaymentMethodMismatch
		}
		if order.PaymentStatus != enum.PaymentStatusAwaitingConfirmation {
			return nil, ErrNotAwaitingPayment
		}
	}
	if amount != nil {
		total := numericToDecimal(order.TotalAmount)
		if amount.Sub(total).Abs().GreaterThan(amountTolerance) {
			return nil, ErrAmountMismatch
		}
	}

	updated, err := store.MarkPaymentVerified(ctx, database.MarkPaymentVerifiedParams{
		ID:                       order.ID,
		PaymentVerifiedBy:        optionalText(req.VerifiedBy),
		PaymentVerificationNotes: optionalText(notes),
		PaymentReference:         optionalText(reference),
	})
	if err != nil {
		// Verified by someone else between the lock and the update.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyVerified
		}
		return nil, fmt.Errorf("mark payment verified: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	log.Printf("payment verified: order=%s method=%s by=%s", updated.OrderNumber, updated.PaymentMethod, req.VerifiedBy)
	return &OrderDetail{Order: updated, Items: items}, nil
}
