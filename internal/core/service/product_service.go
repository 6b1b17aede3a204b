package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

// ProductService applies bulk product edits: product fields, variant prices,
// collection membership, and per-variant inventory via the reconciler.
type ProductService struct {
	catalog    port.CatalogAPI
	reconciler *ReconcileService
	logger     *zap.Logger
}

func NewProductService(catalog port.CatalogAPI, reconciler *ReconcileService, logger *zap.Logger) *ProductService {
	return &ProductService{
		catalog:    catalog,
		reconciler: reconciler,
		logger:     logger,
	}
}

// VariantReconciliation pairs a variant with the outcome of its inventory
// reconciliation.
type VariantReconciliation struct {
	VariantID string
	Result    domain.ReconciliationResult
}

// UpdateProduct updates product fields and variants, then reconciles
// inventory for every variant under remote inventory management. The product
// and variant updates land before any inventory call so that a later
// inventory failure leaves a consistent catalog state behind.
func (s *ProductService) UpdateProduct(ctx context.Context, update domain.ProductUpdate) ([]VariantReconciliation, error) {
	if update.ID == "" {
		return nil, &ValidationError{Code: "product_required", Message: "product id is required"}
	}
	if update.Status != "" {
		update.Status = domain.ProductStatus(strings.ToUpper(string(update.Status)))
		if err := validateStatus(update.Status); err != nil {
			return nil, err
		}
	}

	for i := range update.Variants {
		v := &update.Variants[i]
		price, err := normalizePrice(v.Price)
		if err != nil {
			return nil, err
		}
		v.Price = price
		compareAt, err := normalizePrice(v.CompareAtPrice)
		if err != nil {
			return nil, err
		}
		v.CompareAtPrice = compareAt
	}

	if err := s.catalog.UpdateProduct(ctx, update); err != nil {
		return nil, fmt.Errorf("productUpdate: %w", err)
	}

	if len(update.Variants) > 0 {
		if err := s.catalog.BulkUpdateVariants(ctx, update.ID, update.Variants); err != nil {
			return nil, fmt.Errorf("productVariantsBulkUpdate: %w", err)
		}
	}

	var reconciled []VariantReconciliation
	for _, v := range update.Variants {
		if v.InventoryManagement != "shopify" || v.InventoryQuantity == nil || v.InventoryItemID == "" || v.LocationID == "" {
			continue
		}

		result, err := s.reconciler.Reconcile(ctx, domain.VariantInventoryIntent{
			VariantID:       v.ID,
			InventoryItemID: v.InventoryItemID,
			SKU:             v.SKU,
			Tracked:         true,
			Quantity:        *v.InventoryQuantity,
			LocationID:      v.LocationID,
		})
		if err != nil {
			return reconciled, fmt.Errorf("reconcile variant %s: %w", v.ID, err)
		}
		reconciled = append(reconciled, VariantReconciliation{VariantID: v.ID, Result: result})
	}

	return reconciled, nil
}

// ReplaceCollections replaces a product's collection membership: every
// current membership is removed, then the requested ones are added. An empty
// list detaches the product from all collections.
func (s *ProductService) ReplaceCollections(ctx context.Context, productID string, collectionIDs []string) error {
	current, err := s.catalog.ListProductCollections(ctx, productID)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, collectionID := range current {
		if err := s.catalog.RemoveFromCollection(ctx, collectionID, productID); err != nil {
			return fmt.Errorf("remove from collection %s: %w", collectionID, err)
		}
	}

	for _, collectionID := range collectionIDs {
		if err := s.catalog.AddToCollection(ctx, collectionID, productID); err != nil {
			return fmt.Errorf("add to collection %s: %w", collectionID, err)
		}
	}

	s.logger.Info("collections replaced",
		zap.String("product_id", productID),
		zap.Int("removed", len(current)),
		zap.Int("added", len(collectionIDs)),
	)
	return nil
}

func validateStatus(status domain.ProductStatus) error {
	normalized := domain.ProductStatus(strings.ToUpper(string(status)))
	switch normalized {
	case domain.ProductStatusActive, domain.ProductStatusArchived, domain.ProductStatusDraft:
		return nil
	}
	return &ValidationError{
		Code:    "status_invalid",
		Message: fmt.Sprintf("invalid status %q, must be one of ACTIVE, ARCHIVED, DRAFT", status),
	}
}

// normalizePrice renders a price with exactly two decimal places. Empty
// input stays empty, meaning "leave unchanged".
func normalizePrice(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", &ValidationError{Code: "price_invalid", Message: fmt.Sprintf("invalid price %q", raw)}
	}
	if d.IsNegative() {
		return "", &ValidationError{Code: "price_invalid", Message: fmt.Sprintf("price must not be negative, got %s", raw)}
	}
	return d.StringFixed(2), nil
}
