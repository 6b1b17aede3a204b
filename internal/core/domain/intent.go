package domain

// VariantInventoryIntent is the desired end state for one variant's stock:
// which inventory item to touch, whether it is tracked, the SKU to bind,
// and the absolute on-hand quantity at a location.
type VariantInventoryIntent struct {
	RequestID       string
	VariantID       string
	InventoryItemID string
	SKU             string
	Tracked         bool
	Quantity        int
	LocationID      string
}
