package port

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
)

var (
	// ErrNotFound means the referenced remote entity does not exist.
	ErrNotFound = errors.New("remote entity not found")

	// ErrThrottled means the remote API rate-limited the call. Retryable.
	ErrThrottled = errors.New("remote api throttled")
)

// UserError is a field-level error reported by the remote API on a mutation.
type UserError struct {
	Field   string
	Message string
}

// UserErrorsError wraps the user errors returned by a single mutation. The
// mutation was received and rejected; retrying the same input will fail the
// same way.
type UserErrorsError struct {
	Op     string
	Errors []UserError
}

func (e *UserErrorsError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		if ue.Field != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", ue.Field, ue.Message))
			continue
		}
		msgs = append(msgs, ue.Message)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, strings.Join(msgs, "; "))
}

// CatalogAPI is the remote catalog boundary. Each mutation is transactional
// on its own; the remote system is eventually consistent across calls.
type CatalogAPI interface {
	// GetInventoryItem reads the item state, including the inventory level at
	// locationID when locationID is non-empty. Returns ErrNotFound if the
	// item does not exist.
	GetInventoryItem(ctx context.Context, itemID, locationID string) (*domain.InventoryItemState, error)

	SetTracked(ctx context.Context, itemID string, tracked bool) error
	SetSKU(ctx context.Context, itemID, sku string) error
	ActivateAtLocation(ctx context.Context, itemID, locationID string) (*domain.InventoryLevel, error)

	// SetOnHandQuantity sets the absolute on-hand quantity. Absolute set, not
	// delta, so a retried call cannot double-count.
	SetOnHandQuantity(ctx context.Context, itemID, locationID string, quantity int, reason string) error

	// GetInventoryLevel re-reads the level for verification. Returns
	// ErrNotFound if no level exists at the location.
	GetInventoryLevel(ctx context.Context, itemID, locationID string) (*domain.InventoryLevel, error)

	ListLocations(ctx context.Context) ([]domain.Location, error)

	// ListRecentInventoryLevels returns levels at a location whose quantity
	// changed since the given time, for the edit grid's refresh poll.
	ListRecentInventoryLevels(ctx context.Context, locationID string, since time.Time) ([]domain.InventoryLevelChange, error)

	// ListProducts returns one page of the product catalog. An empty cursor
	// starts from the beginning; pass the page's EndCursor to continue.
	ListProducts(ctx context.Context, cursor string) (*domain.ProductPage, error)

	ListCollections(ctx context.Context) ([]domain.Collection, error)

	UpdateProduct(ctx context.Context, update domain.ProductUpdate) error
	BulkUpdateVariants(ctx context.Context, productID string, variants []domain.VariantUpdate) error

	ListProductCollections(ctx context.Context, productID string) ([]string, error)
	AddToCollection(ctx context.Context, collectionID, productID string) error
	RemoveFromCollection(ctx context.Context, collectionID, productID string) error
}
