package types

// HamperContent is one flavor allocation inside a hamper line item.
type HamperContent struct {
	Flavor string `json:"flavor"`
	Count  int    `json:"count"`
}

// HamperContents is the per-flavor breakdown stored on hamper line items.
// Persisted as jsonb through GORM's json serializer.
type HamperContents []HamperContent

// TotalPackets sums the packet counts across flavors.
func (h HamperContents) TotalPackets() int {
	total := 0
	for _, entry := range h {
		total += entry.Count
	}
	return total
}
