package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
)

// OrderSummary exposes the aggregated fields returned in order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	Status        enums.OrderStatus   `json:"status"`
	Kind          enums.CheckoutKind  `json:"kind"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalPaise    int64               `json:"total_paise"`
	TotalItems    int                 `json:"total_items"`
	EmailSent     bool                `json:"email_sent"`
}

// OrderList wraps a paginated order page plus the next cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the typed detail view of one order.
type OrderDetail struct {
	ID               uuid.UUID              `json:"id"`
	CreatedAt        time.Time              `json:"created_at"`
	Status           enums.OrderStatus      `json:"status"`
	Kind             enums.CheckoutKind     `json:"kind"`
	CustomerName     string                 `json:"customer_name"`
	CustomerEmail    string                 `json:"customer_email"`
	CustomerPhone    string                 `json:"customer_phone"`
	ShippingAddress  string                 `json:"shipping_address"`
	DeliveryState    string                 `json:"delivery_state"`
	PaymentMethod    enums.PaymentMethod    `json:"payment_method"`
	SubtotalPaise    int64                  `json:"subtotal_paise"`
	DeliveryPaise    int64                  `json:"delivery_paise"`
	TaxPaise         int64                  `json:"tax_paise"`
	TotalPaise       int64                  `json:"total_paise"`
	EmailSent        bool                   `json:"email_sent"`
	PaymentSessionID *string                `json:"payment_session_id,omitempty"`
	PaymentLink      *string                `json:"payment_link,omitempty"`
	PaymentRef       *string                `json:"payment_ref,omitempty"`
	Items            []models.OrderLineItem `json:"items"`
}

// DetailFromModel maps a loaded order row into the detail DTO.
func DetailFromModel(order *models.Order) *OrderDetail {
	if order == nil {
		return nil
	}
	return &OrderDetail{
		ID:               order.ID,
		CreatedAt:        order.CreatedAt,
		Status:           order.Status,
		Kind:             order.Kind,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		CustomerPhone:    order.CustomerPhone,
		ShippingAddress:  order.ShippingAddress,
		DeliveryState:    order.DeliveryState,
		PaymentMethod:    order.PaymentMethod,
		SubtotalPaise:    order.SubtotalPaise,
		DeliveryPaise:    order.DeliveryPaise,
		TaxPaise:         order.TaxPaise,
		TotalPaise:       order.TotalPaise,
		EmailSent:        order.EmailSent,
		PaymentSessionID: order.PaymentSessionID,
		PaymentLink:      order.PaymentLink,
		PaymentRef:       order.PaymentRef,
		Items:            order.Items,
	}
}

func summaryFromModel(order models.Order) OrderSummary {
	totalItems := 0
	for _, item := range order.Items {
		totalItems += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		CreatedAt:     order.CreatedAt,
		Status:        order.Status,
		Kind:          order.Kind,
		PaymentMethod: order.PaymentMethod,
		TotalPaise:    order.TotalPaise,
		TotalItems:    totalItems,
		EmailSent:     order.EmailSent,
	}
}
