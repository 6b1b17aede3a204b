package port

import (
	"context"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
)

type DatabaseRepository interface {
	// RecordAdjustment persists the audit record for a terminal reconciliation
	RecordAdjustment(ctx context.Context, adj domain.Adjustment) error

	// ListAdjustments returns the most recent adjustments for an inventory item
	ListAdjustments(ctx context.Context, inventoryItemID string, limit int) ([]domain.Adjustment, error)
}
