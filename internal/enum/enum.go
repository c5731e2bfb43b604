package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "pending"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

const (
	PaymentStatusPending              = "pending"
	PaymentStatusAwaitingConfirmation = "awaiting_confirmation"
	PaymentStatusProcessing           = "processing"
	PaymentStatusCompleted            = "completed"
	PaymentStatusFailed               = "failed"
	PaymentStatusRefunded             = "refunded"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// ── Group B: Payment methods (CHECK constrained in DB) ──

const (
	PaymentMethodPOD          = "pod"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodPayPal       = "paypal"
	PaymentMethodStripe       = "stripe"
	PaymentMethodCard         = "card"
)

// ── Group C: Admin roles ──

const (
	AdminRoleAdmin = "ADMIN"
	AdminRoleStaff = "STAFF"
)

// InitialPaymentStatus derives the payment status a new order starts in.
// Unknown methods are treated as pay-on-delivery.
func InitialPaymentStatus(method string) string {
	switch method {
	case PaymentMethodBankTransfer, PaymentMethodMobileMoney:
		return PaymentStatusAwaitingConfirmation
	case PaymentMethodPayPal, PaymentMethodStripe, PaymentMethodCard:
		return PaymentStatusProcessing
	}
	return PaymentStatusPending
}

// IsPaymentMethod reports whether s is a known payment method.
func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodPOD, PaymentMethodBankTransfer, PaymentMethodMobileMoney,
		PaymentMethodPayPal, PaymentMethodStripe, PaymentMethodCard:
		return true
	}
	return false
}

// IsManualPayment reports whether the method needs staff confirmation.
func IsManualPayment(method string) bool {
	return method == PaymentMethodBankTransfer || method == PaymentMethodMobileMoney
}
