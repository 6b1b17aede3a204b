package domain

import "time"

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
	ProductStatusDraft    ProductStatus = "DRAFT"
)

// ProductUpdate carries the editable product fields. Empty strings mean
// "leave unchanged"; the remote API receives only the populated fields.
type ProductUpdate struct {
	ID              string
	Title           string
	DescriptionHTML string
	Vendor          string
	ProductType     string
	Tags            []string
	Status          ProductStatus
	Variants        []VariantUpdate
}

// Collection is a collection as shown in the membership picker.
type Collection struct {
	ID          string
	Title       string
	Description string
}

// VariantSummary is the read-side view of a variant in a product listing.
type VariantSummary struct {
	ID                string
	SKU               string
	Price             string
	CompareAtPrice    string
	InventoryQuantity int
	InventoryItemID   string
}

// ProductSummary is one product in a catalog listing, carrying the fields
// the edit grid renders.
type ProductSummary struct {
	ID              string
	Title           string
	Handle          string
	DescriptionHTML string
	ProductType     string
	Vendor          string
	Tags            []string
	Status          ProductStatus
	TotalInventory  int
	FeaturedImage   string
	Variants        []VariantSummary
	Collections     []Collection
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductPage is one page of a cursor-paginated product listing. Pass
// EndCursor back to continue while HasNextPage holds.
type ProductPage struct {
	Products    []ProductSummary
	EndCursor   string
	HasNextPage bool
}

// VariantUpdate carries per-variant edits. Price fields are normalized to
// two decimal places before dispatch. The inventory fields feed a
// reconciliation when InventoryManagement is "shopify".
type VariantUpdate struct {
	ID                  string
	Price               string
	CompareAtPrice      string
	InventoryPolicy     string
	SKU                 string
	InventoryManagement string
	InventoryQuantity   *int
	InventoryItemID     string
	LocationID          string
}
