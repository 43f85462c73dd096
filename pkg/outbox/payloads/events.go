package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order awaiting the confirmation email.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalPaise    int64               `json:"total_paise"`
	PlacedAt      time.Time           `json:"placed_at"`
}

// OrderConfirmedEvent is emitted when an online payment settles.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	PaymentRef  string    `json:"payment_ref"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
