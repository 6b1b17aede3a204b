package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) RecordAdjustment(ctx context.Context, adj domain.Adjustment) error {
	var observed sql.NullInt64
	if adj.ObservedQuantity != nil {
		observed = sql.NullInt64{Int64: int64(*adj.ObservedQuantity), Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_adjustments
			(id, inventory_item_id, location_id, sku, requested_quantity, observed_quantity,
			 outcome, reason, detail, mismatch, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.ID, adj.InventoryItemID, adj.LocationID, adj.SKU, adj.RequestedQuantity, observed,
		adj.Outcome, adj.Reason, adj.Detail, adj.Mismatch, adj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListAdjustments(ctx context.Context, inventoryItemID string, limit int) ([]domain.Adjustment, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, inventory_item_id, location_id, sku, requested_quantity, observed_quantity,
		       outcome, reason, detail, mismatch, created_at
		FROM inventory_adjustments
		WHERE inventory_item_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, inventoryItemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []domain.Adjustment
	for rows.Next() {
		var adj domain.Adjustment
		var observed sql.NullInt64
		if err := rows.Scan(
			&adj.ID, &adj.InventoryItemID, &adj.LocationID, &adj.SKU, &adj.RequestedQuantity,
			&observed, &adj.Outcome, &adj.Reason, &adj.Detail, &adj.Mismatch, &adj.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		if observed.Valid {
			qty := int(observed.Int64)
			adj.ObservedQuantity = &qty
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}
