package notify

import (
	"context"
	"fmt"

	"github.com/readers-haven/api/internal/enum"
)

// Events turns domain events into background email jobs.
type Events struct {
	notifier   Notifier
	templates  *Templates
	dispatcher *Dispatcher
}

// NewEvents wires a notifier, templates and dispatcher together.
func NewEvents(n Notifier, t *Templates, d *Dispatcher) *Events {
	return &Events{notifier: n, templates: t, dispatcher: d}
}

// OrderCreated queues the customer receipt, the staff alert and, for manual
// payment methods, the payment instructions.
func (e *Events) OrderCreated(o OrderSummary) {
	e.queue("order confirmation "+o.OrderNumber, func() (Message, error) {
		return e.templates.OrderConfirmation(o)
	})
	e.queue("admin order alert "+o.OrderNumber, func() (Message, error) {
		return e.templates.AdminNewOrder(o)
	})
	if enum.IsManualPayment(o.PaymentMethod) {
		e.queue("payment instructions "+o.OrderNumber, func() (Message, error) {
			return e.templates.PaymentInstructions(o)
		})
	}
}

// BookingCreated queues the customer confirmation and the staff alert.
func (e *Events) BookingCreated(b BookingSummary) {
	e.queue("booking confirmation "+b.BookingNumber, func() (Message, error) {
		return e.templates.BookingConfirmation(b)
	})
	e.queue("admin booking alert "+b.BookingNumber, func() (Message, error) {
		return e.templates.AdminNewBooking(b)
	})
}

// PaymentVerified queues the payment confirmation email.
func (e *Events) PaymentVerified(o OrderSummary) {
	e.queue("payment confirmation "+o.OrderNumber, func() (Message, error) {
		return e.templates.PaymentConfirmed(o)
	})
}

func (e *Events) queue(name string, build func() (Message, error)) {
	e.dispatcher.Go(name, func(ctx context.Context) error {
		msg, err := build()
		if err != nil {
			return err
		}
		if err := e.notifier.Send(ctx, msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	})
}
