package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. Customer fields are
// copied from the validated draft; totals are computed server-side and never
// trusted from the client. Only Status (and the payment references for
// online orders) change after creation.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	CartID           *uuid.UUID          `gorm:"column:cart_id;type:uuid"`
	Kind             enums.CheckoutKind  `gorm:"column:kind;not null;default:'cart'"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	CustomerEmail    string              `gorm:"column:customer_email;not null"`
	CustomerPhone    string              `gorm:"column:customer_phone;not null"`
	ShippingAddress  string              `gorm:"column:shipping_address;not null"`
	DeliveryState    string              `gorm:"column:delivery_state;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	SubtotalPaise    int64               `gorm:"column:subtotal_paise;not null"`
	DeliveryPaise    int64               `gorm:"column:delivery_paise;not null"`
	TaxPaise         int64               `gorm:"column:tax_paise;not null;default:0"`
	TotalPaise       int64               `gorm:"column:total_paise;not null"`
	EmailSent        bool                `gorm:"column:email_sent;not null;default:false"`
	PaymentSessionID *string             `gorm:"column:payment_session_id"`
	PaymentLink      *string             `gorm:"column:payment_link"`
	PaymentRef       *string             `gorm:"column:payment_ref"`
	Items            []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
