package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/pkg/types"
)

// CartItem is a product snapshot inside a cart. Hamper lines carry the
// per-flavor packet breakdown in Contents.
type CartItem struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID            `gorm:"column:cart_id;type:uuid;not null"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	Name           string               `gorm:"column:name;not null"`
	UnitPricePaise int64                `gorm:"column:unit_price_paise;not null"`
	Quantity       int                  `gorm:"column:quantity;not null"`
	ImageURL       *string              `gorm:"column:image_url"`
	Contents       types.HamperContents `gorm:"column:contents;type:jsonb;serializer:json"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
