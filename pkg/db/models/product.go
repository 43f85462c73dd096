package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hariombakery/khakhra-backend/pkg/enums"
)

// Product is a catalog listing. Stock is authoritative here; carts and
// orders only snapshot it. Hamper listings additionally carry the packet
// configuration used by the customizer.
type Product struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string                `gorm:"column:name;not null"`
	Description        *string               `gorm:"column:description"`
	Category           enums.ProductCategory `gorm:"column:category;not null"`
	PricePaise         int64                 `gorm:"column:price_paise;not null"`
	OriginalPricePaise *int64                `gorm:"column:original_price_paise"`
	Stock              int                   `gorm:"column:stock;not null;default:0"`
	ImageURL           *string               `gorm:"column:image_url"`
	IsHamper           bool                  `gorm:"column:is_hamper;not null;default:false"`
	PacketsPerHamper   int                   `gorm:"column:packets_per_hamper;not null;default:0"`
	PacketPricePaise   int64                 `gorm:"column:packet_price_paise;not null;default:0"`
	PacketWeightGrams  int                   `gorm:"column:packet_weight_grams;not null;default:0"`
	Flavors            pq.StringArray        `gorm:"column:flavors;type:text[]"`
	IsActive           bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
