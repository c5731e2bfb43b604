package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/readers-haven/api/internal/config"
	"github.com/readers-haven/api/internal/enum"
)

const siteName = "Reader's Haven"

// LineItem is one order line as shown in emails.
type LineItem struct {
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// OrderSummary carries what order emails need.
type OrderSummary struct {
	ID              int64
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	PaymentMethod   string
	PaymentStatus   string
	Items           []LineItem
	Subtotal        decimal.Decimal
	DeliveryCost    decimal.Decimal
	Total           decimal.Decimal
	VerifiedAt      time.Time
	Reference       string
}

// BookingSummary carries what booking emails need.
type BookingSummary struct {
	BookingNumber string
	Name          string
	Email         string
	Phone         string
	Date          time.Time
	Time          string
	Notes         string
}

// Templates renders the HTML emails sent by the shop.
type Templates struct {
	tmpl       *template.Template
	payment    *config.PaymentConfig
	adminEmail string
}

// NewTemplates parses the built-in email templates.
func NewTemplates(payment *config.PaymentConfig, adminEmail string) *Templates {
	t := &Templates{payment: payment, adminEmail: adminEmail}
	funcs := template.FuncMap{
		"money":       t.money,
		"methodLabel": methodLabel,
		"date":        func(d time.Time) string { return d.Format("Monday, 2 January 2006") },
		"stamp":       func(d time.Time) string { return d.Format("2 Jan 2006 15:04") },
	}
	t.tmpl = template.Must(template.New("emails").Funcs(funcs).Parse(emailTemplates))
	return t
}

type paymentData struct {
	OrderSummary
	Bank        config.BankDetails
	MobileMoney []config.MobileMoney
	IsBank      bool
}

// OrderConfirmation is the customer's receipt for a new order.
func (t *Templates) OrderConfirmation(o OrderSummary) (Message, error) {
	return t.render("order_confirmation", o, Message{
		To:      o.CustomerEmail,
		ToName:  o.CustomerName,
		Subject: "Order Confirmation - " + siteName,
	})
}

// AdminNewOrder alerts staff about a new order.
func (t *Templates) AdminNewOrder(o OrderSummary) (Message, error) {
	return t.render("admin_new_order", o, Message{
		To:      t.adminEmail,
		ToName:  siteName,
		Subject: "New Order Received - " + siteName,
	})
}

// PaymentInstructions tells a bank transfer or mobile money customer where to pay.
func (t *Templates) PaymentInstructions(o OrderSummary) (Message, error) {
	return t.render("payment_instructions", t.paymentData(o), Message{
		To:      o.CustomerEmail,
		ToName:  o.CustomerName,
		Subject: "Payment Instructions - Order " + o.OrderNumber,
	})
}

// PaymentConfirmed tells the customer staff verified the payment.
func (t *Templates) PaymentConfirmed(o OrderSummary) (Message, error) {
	return t.render("payment_confirmed", o, Message{
		To:      o.CustomerEmail,
		ToName:  o.CustomerName,
		Subject: "Payment Confirmed - Order " + o.OrderNumber,
	})
}

// PaymentReminder nudges a customer whose manual payment is still unconfirmed.
func (t *Templates) PaymentReminder(o OrderSummary) (Message, error) {
	return t.render("payment_reminder", t.paymentData(o), Message{
		To:      o.CustomerEmail,
		ToName:  o.CustomerName,
		Subject: "Payment Reminder - Order " + o.OrderNumber,
	})
}

// BookingConfirmation is the customer's copy of a new counselling booking.
func (t *Templates) BookingConfirmation(b BookingSummary) (Message, error) {
	return t.render("booking_confirmation", b, Message{
		To:      b.Email,
		ToName:  b.Name,
		Subject: "Counselling Appointment Confirmed - " + siteName,
	})
}

// AdminNewBooking alerts staff about a new booking.
func (t *Templates) AdminNewBooking(b BookingSummary) (Message, error) {
	return t.render("admin_new_booking", b, Message{
		To:      t.adminEmail,
		ToName:  siteName,
		Subject: "New Counselling Appointment - " + siteName,
	})
}

func (t *Templates) paymentData(o OrderSummary) paymentData {
	return paymentData{
		OrderSummary: o,
		Bank:         t.payment.Bank,
		MobileMoney:  t.payment.EnabledProviders(),
		IsBank:       o.PaymentMethod == enum.PaymentMethodBankTransfer,
	}
}

func (t *Templates) render(name string, data any, msg Message) (Message, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	msg.HTMLBody = buf.String()
	return msg, nil
}

func (t *Templates) money(d decimal.Decimal) string {
	return FormatMoney(t.payment.Currency, d)
}

// FormatMoney renders an amount with thousands separators, e.g. "UGX 1,250,000".
// Whole amounts drop the decimals.
func FormatMoney(currency string, d decimal.Decimal) string {
	places := int32(2)
	if d.Equal(d.Truncate(0)) {
		places = 0
	}
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}

func methodLabel(method string) string {
	switch method {
	case enum.PaymentMethodPOD:
		return "Pay on Delivery"
	case enum.PaymentMethodBankTransfer:
		return "Bank Transfer"
	case enum.PaymentMethodMobileMoney:
		return "Mobile Money"
	case enum.PaymentMethodPayPal:
		return "PayPal"
	case enum.PaymentMethodStripe, enum.PaymentMethodCard:
		return "Card"
	}
	return method
}

const emailTemplates = `
{{define "footer"}}<p>Thank you,<br>Reader's Haven</p>{{end}}

{{define "items"}}<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Total</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Total}}</td></tr>
{{end}}<tr><td colspan="2">Subtotal</td><td align="right">{{money .Subtotal}}</td></tr>
<tr><td colspan="2">Delivery</td><td align="right">{{money .DeliveryCost}}</td></tr>
<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{money .Total}}</strong></td></tr>
</table>{{end}}

{{define "payment_details"}}{{if .IsBank}}<p><strong>Bank Transfer Details</strong><br>
Bank: {{.Bank.BankName}}<br>
Account Name: {{.Bank.AccountName}}<br>
Account Number: {{.Bank.AccountNumber}}<br>
{{if .Bank.SwiftCode}}SWIFT Code: {{.Bank.SwiftCode}}<br>{{end}}
{{if .Bank.IBAN}}IBAN: {{.Bank.IBAN}}<br>{{end}}
Reference: {{.OrderNumber}}</p>
{{else}}<p><strong>Mobile Money Details</strong><br>
{{range .MobileMoney}}{{.Name}}: {{.Number}}<br>
{{end}}Reference: {{.OrderNumber}}</p>
{{end}}{{end}}

{{define "order_confirmation"}}<h2>Thank you for your order!</h2>
<p>Dear {{.CustomerName}},</p>
<p>We have received your order <strong>{{.OrderNumber}}</strong>.</p>
{{template "items" .}}
<p>Payment method: {{methodLabel .PaymentMethod}}</p>
{{if .ShippingAddress}}<p>Delivery address: {{.ShippingAddress}}</p>{{end}}
{{template "footer"}}{{end}}

{{define "admin_new_order"}}<h2>New order {{.OrderNumber}}</h2>
<p>Customer: {{.CustomerName}} &lt;{{.CustomerEmail}}&gt;{{if .CustomerPhone}}, {{.CustomerPhone}}{{end}}</p>
{{template "items" .}}
<p>Payment: {{methodLabel .PaymentMethod}} ({{.PaymentStatus}})</p>
{{if .ShippingAddress}}<p>Deliver to: {{.ShippingAddress}}</p>{{end}}{{end}}

{{define "payment_instructions"}}<h2>Payment Instructions</h2>
<p>Dear {{.CustomerName}},</p>
<p>Thank you for your order #{{.OrderNumber}}! Please pay <strong>{{money .Total}}</strong> using the details below.</p>
{{template "payment_details" .}}
<p>IMPORTANT: Please include the order number ({{.OrderNumber}}) as your payment reference.
Once payment is verified, we will send you a confirmation and begin processing your order.</p>
{{template "items" .}}
{{template "footer"}}{{end}}

{{define "payment_confirmed"}}<h2>Payment Confirmed</h2>
<p>Dear {{.CustomerName}},</p>
<p>We have confirmed your payment of <strong>{{money .Total}}</strong> for order {{.OrderNumber}}{{if not .VerifiedAt.IsZero}} on {{stamp .VerifiedAt}}{{end}}.</p>
{{if .Reference}}<p>Reference: {{.Reference}}</p>{{end}}
<p>Your order is now being processed.</p>
{{template "footer"}}{{end}}

{{define "payment_reminder"}}<p>Hello {{.CustomerName}},</p>
<p>This is a friendly reminder that we are still waiting for payment for order <strong>{{.OrderNumber}}</strong>.</p>
<p>Amount due: <strong>{{money .Total}}</strong></p>
{{template "payment_details" .}}
<p>If you have already paid, please ignore this message.<br>
If you need help, reply to this email and we will assist you.</p>
{{template "footer"}}{{end}}

{{define "booking_confirmation"}}<h2>Your counselling session is booked</h2>
<p>Dear {{.Name}},</p>
<p>Booking reference: <strong>{{.BookingNumber}}</strong></p>
<p>Date: {{date .Date}}<br>Time: {{.Time}}</p>
<p>We will contact you if anything changes.</p>
{{template "footer"}}{{end}}

{{define "admin_new_booking"}}<h2>New booking {{.BookingNumber}}</h2>
<p>{{.Name}} &lt;{{.Email}}&gt;{{if .Phone}}, {{.Phone}}{{end}}</p>
<p>{{date .Date}} at {{.Time}}</p>
{{if .Notes}}<p>Message: {{.Notes}}</p>{{end}}{{end}}
`
