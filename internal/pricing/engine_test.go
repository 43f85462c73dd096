package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hariombakery/khakhra-backend/pkg/config"
)

func testStoreConfig() config.StoreConfig {
	return config.StoreConfig{
		LocalDeliveryState:       "gujarat",
		LocalDeliveryChargePaise: 6000,
		OtherDeliveryChargePaise: 10000,
		HamperMinPackets:         10,
	}
}

func TestSubtotal(t *testing.T) {
	engine := NewEngine(testStoreConfig())

	assert.Equal(t, int64(0), engine.Subtotal(nil))
	assert.Equal(t, int64(20000), engine.Subtotal([]LineAmount{
		{UnitPricePaise: 10000, Quantity: 2},
	}))
	assert.Equal(t, int64(25000), engine.Subtotal([]LineAmount{
		{UnitPricePaise: 10000, Quantity: 2},
		{UnitPricePaise: 5000, Quantity: 1},
	}))
}

func TestSubtotalIgnoresNonPositiveQuantities(t *testing.T) {
	engine := NewEngine(testStoreConfig())

	assert.Equal(t, int64(10000), engine.Subtotal([]LineAmount{
		{UnitPricePaise: 10000, Quantity: 1},
		{UnitPricePaise: 99999, Quantity: 0},
		{UnitPricePaise: 99999, Quantity: -3},
	}))
}

func TestDeliveryCharge(t *testing.T) {
	engine := NewEngine(testStoreConfig())

	assert.Equal(t, int64(0), engine.DeliveryCharge(""))
	assert.Equal(t, int64(0), engine.DeliveryCharge("   "))
	assert.Equal(t, int64(6000), engine.DeliveryCharge("gujarat"))
	assert.Equal(t, int64(6000), engine.DeliveryCharge("Gujarat"))
	assert.Equal(t, int64(6000), engine.DeliveryCharge("  GUJARAT  "))
	assert.Equal(t, int64(10000), engine.DeliveryCharge("Maharashtra"))
	assert.Equal(t, int64(10000), engine.DeliveryCharge("Rajasthan"))
}

func TestTaxIsZero(t *testing.T) {
	engine := NewEngine(testStoreConfig())

	assert.Equal(t, int64(0), engine.Tax(nil))
	assert.Equal(t, int64(0), engine.Tax([]LineAmount{{UnitPricePaise: 10000, Quantity: 5}}))
}

func TestComputeTotals(t *testing.T) {
	engine := NewEngine(testStoreConfig())

	totals := engine.ComputeTotals([]LineAmount{
		{UnitPricePaise: 10000, Quantity: 2},
	}, "Maharashtra")

	assert.Equal(t, int64(20000), totals.SubtotalPaise)
	assert.Equal(t, int64(10000), totals.DeliveryPaise)
	assert.Equal(t, int64(0), totals.TaxPaise)
	assert.Equal(t, int64(30000), totals.TotalPaise)
}

func TestComputeTotalsIsIdempotent(t *testing.T) {
	engine := NewEngine(testStoreConfig())
	items := []LineAmount{{UnitPricePaise: 4500, Quantity: 3}}

	first := engine.ComputeTotals(items, "gujarat")
	second := engine.ComputeTotals(items, "gujarat")

	assert.Equal(t, first, second)
	assert.Equal(t, first.SubtotalPaise+first.DeliveryPaise+first.TaxPaise, first.TotalPaise)
}
