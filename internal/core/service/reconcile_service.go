package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrItemBusy         = errors.New("inventory item is being reconciled by another request")
)

const (
	adjustmentReason = "correction"

	lockTTL             = 10 * time.Second
	lockAcquireAttempts = 3
	lockAcquireDelay    = 100 * time.Millisecond
)

// ReconcileService drives the remote inventory subsystem to a desired state:
// enable tracking, bind the SKU, activate the item at the location, set the
// absolute quantity, then verify. It owns no durable state; every call
// re-reads remote state before deciding which steps are still missing.
type ReconcileService struct {
	catalog port.CatalogAPI
	cache   port.CacheRepository
	db      port.DatabaseRepository
	events  port.EventPublisher
	logger  *zap.Logger
	retry   RetryPolicy
	queue   chan domain.VariantInventoryIntent
}

func NewReconcileService(
	catalog port.CatalogAPI,
	cache port.CacheRepository,
	db port.DatabaseRepository,
	events port.EventPublisher,
	logger *zap.Logger,
	queueSize int,
) *ReconcileService {
	return &ReconcileService{
		catalog: catalog,
		cache:   cache,
		db:      db,
		events:  events,
		logger:  logger,
		retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Retryable: func(err error) bool {
				return errors.Is(err, port.ErrThrottled)
			},
		},
		queue: make(chan domain.VariantInventoryIntent, queueSize),
	}
}

// Reconcile runs one intent to a terminal outcome. Validation failures,
// missing items, remote rejections, and throttling exhaustion are all
// normalized into the result; the returned error covers only coordination
// problems (duplicate request, item locked elsewhere) and unexpected
// transport failures, in which case no reconciliation ran to completion.
func (s *ReconcileService) Reconcile(ctx context.Context, intent domain.VariantInventoryIntent) (domain.ReconciliationResult, error) {
	if err := ValidateIntent(intent); err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		s.logger.Warn("intent rejected",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.String("code", verr.Code),
		)
		result := domain.ReconciliationResult{
			Outcome: domain.OutcomeFailed,
			Reason:  domain.ReasonValidation,
			Detail:  verr.Code,
		}
		s.record(ctx, intent, result)
		s.publish(ctx, intent, result)
		return result, nil
	}

	if intent.RequestID != "" {
		ok, err := s.cache.SetIdempotency(ctx, "reconcile:"+intent.RequestID)
		if err != nil {
			return domain.ReconciliationResult{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.ReconciliationResult{}, ErrDuplicateRequest
		}
	}

	// Concurrent reconciliations of the same item are serialized by a keyed
	// lock; the remote API offers no cross-call consistency of its own.
	lockKey := "lock:inventory:" + intent.InventoryItemID
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < lockAcquireAttempts; i++ {
		ok, err := s.cache.AcquireLock(ctx, lockKey, lockValue, lockTTL)
		if err != nil {
			s.logger.Error("lock acquire failed", zap.String("key", lockKey), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return domain.ReconciliationResult{}, ctx.Err()
		case <-time.After(lockAcquireDelay):
		}
	}
	if !acquired {
		return domain.ReconciliationResult{}, ErrItemBusy
	}
	defer s.cache.ReleaseLock(ctx, lockKey, lockValue)

	result, err := s.reconcileLocked(ctx, intent)
	if err != nil {
		return domain.ReconciliationResult{}, err
	}

	s.record(ctx, intent, result)
	s.publish(ctx, intent, result)

	return result, nil
}

// reconcileLocked runs the precondition, quantity, and verification steps.
// Each precondition mutation is conditional on observed remote state, so a
// replayed intent short-circuits steps that already hold. Landed steps are
// valid end states on their own and are never rolled back.
func (s *ReconcileService) reconcileLocked(ctx context.Context, intent domain.VariantInventoryIntent) (domain.ReconciliationResult, error) {
	state, err := s.catalog.GetInventoryItem(ctx, intent.InventoryItemID, intent.LocationID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return failure(domain.ReasonNotFound, "inventory item not found"), nil
		}
		return s.mapRemoteError("getInventoryItem", err)
	}

	if intent.Tracked && !state.Tracked {
		s.logger.Info("enabling inventory tracking", zap.String("inventory_item_id", intent.InventoryItemID))
		if err := s.catalog.SetTracked(ctx, intent.InventoryItemID, true); err != nil {
			return s.mapRemoteError("setTracked", err)
		}
	}

	if intent.SKU != "" && intent.SKU != state.SKU {
		if state.SKU != "" {
			s.logger.Warn("overwriting sku",
				zap.String("inventory_item_id", intent.InventoryItemID),
				zap.String("from", state.SKU),
				zap.String("to", intent.SKU),
			)
		}
		if err := s.catalog.SetSKU(ctx, intent.InventoryItemID, intent.SKU); err != nil {
			return s.mapRemoteError("setSku", err)
		}
	}

	if intent.Tracked && state.Level == nil {
		s.logger.Info("activating inventory at location",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.String("location_id", intent.LocationID),
		)
		if _, err := s.catalog.ActivateAtLocation(ctx, intent.InventoryItemID, intent.LocationID); err != nil {
			return s.mapRemoteError("activateAtLocation", err)
		}
	}

	if !intent.Tracked {
		// Untracked intents carry a zero quantity by validation; there is no
		// counted level to write or verify.
		return domain.ReconciliationResult{Outcome: domain.OutcomeSucceeded}, nil
	}

	err = s.retry.Do(ctx, func() error {
		return s.catalog.SetOnHandQuantity(ctx, intent.InventoryItemID, intent.LocationID, intent.Quantity, adjustmentReason)
	})
	if err != nil {
		return s.mapRemoteError("setOnHandQuantity", err)
	}

	return s.verify(ctx, intent), nil
}

// verify re-reads the level after a successful quantity set. The remote read
// is not guaranteed consistent with the write, so a mismatch or a failed
// read downgrades to a warning on an otherwise successful result.
func (s *ReconcileService) verify(ctx context.Context, intent domain.VariantInventoryIntent) domain.ReconciliationResult {
	result := domain.ReconciliationResult{Outcome: domain.OutcomeSucceeded}

	level, err := s.catalog.GetInventoryLevel(ctx, intent.InventoryItemID, intent.LocationID)
	if err != nil {
		s.logger.Warn("verification read failed",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.Error(err),
		)
		return result
	}

	result.FinalQuantity = &level.Available
	if !level.UpdatedAt.IsZero() {
		updatedAt := level.UpdatedAt
		result.UpdatedAt = &updatedAt
	}
	if level.Available != intent.Quantity {
		s.logger.Warn("verification mismatch",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.Int("requested", intent.Quantity),
			zap.Int("observed", level.Available),
		)
		result.QuantityMismatch = true
	}
	return result
}

// mapRemoteError normalizes terminal remote failures into results and lets
// everything else surface to the caller.
func (s *ReconcileService) mapRemoteError(op string, err error) (domain.ReconciliationResult, error) {
	var userErrs *port.UserErrorsError
	switch {
	case errors.As(err, &userErrs):
		s.logger.Error("remote rejected mutation", zap.String("op", op), zap.Error(err))
		return failure(domain.ReasonRemoteRejected, userErrs.Error()), nil
	case errors.Is(err, port.ErrThrottled):
		s.logger.Warn("throttled after retries", zap.String("op", op))
		return failure(domain.ReasonThrottled, op+" throttled"), nil
	default:
		return domain.ReconciliationResult{}, fmt.Errorf("%s: %w", op, err)
	}
}

func failure(reason domain.FailureReason, detail string) domain.ReconciliationResult {
	return domain.ReconciliationResult{
		Outcome: domain.OutcomeFailed,
		Reason:  reason,
		Detail:  detail,
	}
}

func (s *ReconcileService) record(ctx context.Context, intent domain.VariantInventoryIntent, result domain.ReconciliationResult) {
	if s.db == nil {
		return
	}
	adj := domain.Adjustment{
		ID:                uuid.New().String(),
		InventoryItemID:   intent.InventoryItemID,
		LocationID:        intent.LocationID,
		SKU:               intent.SKU,
		RequestedQuantity: intent.Quantity,
		ObservedQuantity:  result.FinalQuantity,
		Outcome:           result.Outcome,
		Reason:            result.Reason,
		Detail:            result.Detail,
		Mismatch:          result.QuantityMismatch,
		CreatedAt:         time.Now(),
	}
	if err := s.db.RecordAdjustment(ctx, adj); err != nil {
		s.logger.Error("failed to record adjustment",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.Error(err),
		)
	}
}

func (s *ReconcileService) publish(ctx context.Context, intent domain.VariantInventoryIntent, result domain.ReconciliationResult) {
	if s.events == nil {
		return
	}
	event := domain.ReconciliationEvent{
		InventoryItemID:   intent.InventoryItemID,
		LocationID:        intent.LocationID,
		SKU:               intent.SKU,
		RequestedQuantity: intent.Quantity,
		FinalQuantity:     result.FinalQuantity,
		Outcome:           result.Outcome,
		Reason:            result.Reason,
		OccurredAt:        time.Now(),
	}
	if err := s.events.PublishReconciled(ctx, event); err != nil {
		s.logger.Error("failed to publish reconciliation event",
			zap.String("inventory_item_id", intent.InventoryItemID),
			zap.Error(err),
		)
	}
}

// Enqueue hands an intent to the bulk workers.
func (s *ReconcileService) Enqueue(intent domain.VariantInventoryIntent) {
	s.queue <- intent
}

func (s *ReconcileService) GetQueue() <-chan domain.VariantInventoryIntent {
	return s.queue
}

func (s *ReconcileService) Close() {
	close(s.queue)
}
