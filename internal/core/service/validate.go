package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
)

// ValidationError reports a structurally invalid intent. No remote call has
// been made when one of these is returned.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	codeItemRequired     = "item_required"
	codeQuantityInvalid  = "quantity_invalid"
	codeSKURequired      = "sku_required"
	codeLocationRequired = "location_required"
	codeTrackingRequired = "tracking_required"
)

// NormalizeQuantity turns a raw user-typed quantity string into an integer.
// Blank input, a bare minus sign, and non-numeric text all normalize to 0,
// matching what the edit form lets through mid-typing. A parsed value below
// zero is invalid input, not a quantity of zero.
func NormalizeQuantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// Fall back to the longest leading integer, so "12.7" reads as 12
		// and "-0." as 0.
		n, err = leadingInt(s)
		if err != nil {
			return 0, nil
		}
	}

	if n < 0 {
		return 0, &ValidationError{Code: codeQuantityInvalid, Message: fmt.Sprintf("quantity must not be negative, got %d", n)}
	}
	return n, nil
}

func leadingInt(s string) (int, error) {
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s[:end])
}

// ValidateIntent enforces the structural rules before anything touches the
// network: a tracked nonzero quantity needs a SKU, tracking needs a
// location, and a nonzero quantity needs tracking.
func ValidateIntent(intent domain.VariantInventoryIntent) error {
	if intent.InventoryItemID == "" {
		return &ValidationError{Code: codeItemRequired, Message: "inventory item id is required"}
	}
	if intent.Quantity < 0 {
		return &ValidationError{Code: codeQuantityInvalid, Message: "quantity must not be negative"}
	}
	if intent.Tracked && intent.Quantity != 0 && intent.SKU == "" {
		return &ValidationError{Code: codeSKURequired, Message: "sku is required when inventory quantity is not 0"}
	}
	if intent.Tracked && intent.LocationID == "" {
		return &ValidationError{Code: codeLocationRequired, Message: "an inventory location must be selected"}
	}
	if !intent.Tracked && intent.Quantity != 0 {
		return &ValidationError{Code: codeTrackingRequired, Message: "inventory tracking must be enabled to set a quantity"}
	}
	return nil
}
