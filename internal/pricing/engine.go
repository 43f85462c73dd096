package pricing

import (
	"strings"

	"github.com/hariombakery/khakhra-backend/pkg/config"
)

// LineAmount is the minimal view of a priced line the engine needs.
type LineAmount struct {
	UnitPricePaise int64
	Quantity       int
}

// Totals is the full price breakdown for an order.
type Totals struct {
	SubtotalPaise int64 `json:"subtotal_paise"`
	DeliveryPaise int64 `json:"delivery_paise"`
	TaxPaise      int64 `json:"tax_paise"`
	TotalPaise    int64 `json:"total_paise"`
}

// Engine computes order totals. All methods are pure and idempotent.
type Engine struct {
	cfg config.StoreConfig
}

func NewEngine(cfg config.StoreConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Subtotal sums unit price times quantity across all lines.
func (e *Engine) Subtotal(items []LineAmount) int64 {
	var total int64
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		total += item.UnitPricePaise * int64(item.Quantity)
	}
	return total
}

// DeliveryCharge returns the flat delivery charge for the destination state.
// An empty state (nothing selected yet) carries no charge.
func (e *Engine) DeliveryCharge(state string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(state))
	if normalized == "" {
		return 0
	}
	if normalized == strings.ToLower(e.cfg.LocalDeliveryState) {
		return e.cfg.LocalDeliveryChargePaise
	}
	return e.cfg.OtherDeliveryChargePaise
}

// Tax is currently always zero. The field stays in Totals so the breakdown
// shape does not change when GST collection starts.
func (e *Engine) Tax(items []LineAmount) int64 {
	return 0
}

// ComputeTotals produces the complete breakdown for the given lines and state.
func (e *Engine) ComputeTotals(items []LineAmount, state string) Totals {
	subtotal := e.Subtotal(items)
	delivery := e.DeliveryCharge(state)
	tax := e.Tax(items)
	return Totals{
		SubtotalPaise: subtotal,
		DeliveryPaise: delivery,
		TaxPaise:      tax,
		TotalPaise:    subtotal + delivery + tax,
	}
}
