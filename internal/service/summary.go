package service

import (
	"encoding/json"
	"html"

	"github.com/readers-haven/api/internal/database"
	"github.com/readers-haven/api/internal/notify"
)

// NewOrderSummary converts a stored order into the shape email templates use.
// Free text is stored HTML-escaped, so it is unescaped here for the templates
// to escape once.
func NewOrderSummary(order database.Order, items []database.OrderItem) notify.OrderSummary {
	total := numericToDecimal(order.TotalAmount)
	delivery := numericToDecimal(order.DeliveryCost)

	var details DeliveryDetails
	if len(order.DeliveryDetails) > 0 {
		_ = json.Unmarshal(order.DeliveryDetails, &details)
	}

	s := notify.OrderSummary{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   details.Phone,
		ShippingAddress: html.UnescapeString(order.ShippingAddress.String),
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		Subtotal:        total.Sub(delivery),
		DeliveryCost:    delivery,
		Total:           total,
		Reference:       html.UnescapeString(order.PaymentReference.String),
	}
	if order.PaymentVerifiedAt.Valid {
		s.VerifiedAt = order.PaymentVerifiedAt.Time
	}
	for _, it := range items {
		s.Items = append(s.Items, notify.LineItem{
			Name:      html.UnescapeString(it.ProductName),
			Quantity:  it.Quantity,
			UnitPrice: numericToDecimal(it.UnitPrice),
			Total:     numericToDecimal(it.TotalPrice),
		})
	}
	return s
}

// NewBookingSummary converts a stored booking for the email templates.
func NewBookingSummary(b database.Booking) notify.BookingSummary {
	return notify.BookingSummary{
		BookingNumber: b.BookingNumber,
		Name:          b.CustomerName,
		Email:         b.CustomerEmail,
		Phone:         b.CustomerPhone.String,
		Date:          b.BookingDate.Time,
		Time:          b.BookingTime,
		Notes:         html.UnescapeString(b.Notes.String),
	}
}
