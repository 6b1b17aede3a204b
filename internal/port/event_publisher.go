package port

import (
	"context"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
)

type EventPublisher interface {
	// PublishReconciled emits the terminal outcome of a reconciliation
	PublishReconciled(ctx context.Context, event domain.ReconciliationEvent) error
}
