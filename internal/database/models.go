package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type AdminUser struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Booking struct {
	ID            int64       `json:"id"`
	BookingNumber string      `json:"booking_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone pgtype.Text `json:"customer_phone"`
	BookingDate   pgtype.Date `json:"booking_date"`
	BookingTime   string      `json:"booking_time"`
	Notes         pgtype.Text `json:"notes"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type Customer struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     pgtype.Text `json:"phone"`
	Address   pgtype.Text `json:"address"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type DeliveryOption struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	DeliveryTimeMin int32          `json:"delivery_time_min"`
	DeliveryTimeMax int32          `json:"delivery_time_max"`
	Cost            pgtype.Numeric `json:"cost"`
	IsActive        bool           `json:"is_active"`
	SortOrder       int32          `json:"sort_order"`
	CreatedAt       time.Time      `json:"created_at"`
}

type Inventory struct {
	ProductID        int64     `json:"product_id"`
	QuantityInStock  int32     `json:"quantity_in_stock"`
	QuantityReserved int32     `json:"quantity_reserved"`
	ReorderLevel     int32     `json:"reorder_level"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Order struct {
	ID                        int64              `json:"id"`
	OrderNumber               string             `json:"order_number"`
	CustomerID                int64              `json:"customer_id"`
	CustomerName              string             `json:"customer_name"`
	CustomerEmail             string             `json:"customer_email"`
	TotalAmount               pgtype.Numeric     `json:"total_amount"`
	DeliveryMethodID          pgtype.Int8        `json:"delivery_method_id"`
	DeliveryCost              pgtype.Numeric     `json:"delivery_cost"`
	ShippingAddress           pgtype.Text        `json:"shipping_address"`
	DeliveryDetails           []byte             `json:"delivery_details"`
	Notes                     pgtype.Text        `json:"notes"`
	PaymentMethod             string             `json:"payment_method"`
	PaymentStatus             string             `json:"payment_status"`
	Status                    string             `json:"status"`
	PaymentVerifiedAt         pgtype.Timestamptz `json:"payment_verified_at"`
	PaymentVerifiedBy         pgtype.Text        `json:"payment_verified_by"`
	PaymentVerificationNotes  pgtype.Text        `json:"payment_verification_notes"`
	PaymentReference          pgtype.Text        `json:"payment_reference"`
	CreatedAt                 time.Time          `json:"created_at"`
	UpdatedAt                 time.Time          `json:"updated_at"`
	PaymentReminderCount      int32              `json:"payment_reminder_count"`
	PaymentReminderLastSentAt pgtype.Timestamptz `json:"payment_reminder_last_sent_at"`
	PaymentReminderClaimedAt  pgtype.Timestamptz `json:"payment_reminder_claimed_at"`
}

type OrderItem struct {
	ID          int64          `json:"id"`
	OrderID     int64          `json:"order_id"`
	ProductID   int64          `json:"product_id"`
	ProductName string         `json:"product_name"`
	Quantity    int32          `json:"quantity"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	TotalPrice  pgtype.Numeric `json:"total_price"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	Emoji       pgtype.Text    `json:"emoji"`
	InStock     bool           `json:"in_stock"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type UnavailableDate struct {
	ID              int64       `json:"id"`
	UnavailableDate pgtype.Date `json:"unavailable_date"`
	Reason          pgtype.Text `json:"reason"`
	CreatedAt       time.Time   `json:"created_at"`
}
