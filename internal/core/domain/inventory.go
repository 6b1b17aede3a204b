package domain

import "time"

// InventoryLevel is the (item, location) on-hand quantity as last observed
// on the remote side.
type InventoryLevel struct {
	LocationID string
	Available  int
	UpdatedAt  time.Time
}

// InventoryItemState is a snapshot of remote state, re-read at the start of
// every reconciliation. Level is nil when the item is not activated at the
// requested location.
type InventoryItemState struct {
	ID      string
	Tracked bool
	SKU     string
	Level   *InventoryLevel
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

type FailureReason string

const (
	ReasonValidation     FailureReason = "validation"
	ReasonNotFound       FailureReason = "not_found"
	ReasonRemoteRejected FailureReason = "remote_rejected"
	ReasonThrottled      FailureReason = "throttled"
)

// ReconciliationResult is created fresh per reconciliation and returned to
// the caller; it is never persisted as-is.
type ReconciliationResult struct {
	Outcome Outcome
	Reason  FailureReason
	Detail  string

	// FinalQuantity is the quantity observed by the verification read, nil
	// when the read failed or the item is untracked.
	FinalQuantity *int
	UpdatedAt     *time.Time

	// QuantityMismatch is set when the verification read disagreed with the
	// requested quantity. The result is still a success: the remote side is
	// eventually consistent and the mutation itself was accepted.
	QuantityMismatch bool
}

func (r ReconciliationResult) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// Adjustment is the audit record written for every terminal reconciliation.
type Adjustment struct {
	ID                string
	InventoryItemID   string
	LocationID        string
	SKU               string
	RequestedQuantity int
	ObservedQuantity  *int
	Outcome           Outcome
	Reason            FailureReason
	Detail            string
	Mismatch          bool
	CreatedAt         time.Time
}

// ReconciliationEvent is published after a reconciliation reaches a terminal
// state.
type ReconciliationEvent struct {
	InventoryItemID   string        `json:"inventory_item_id"`
	LocationID        string        `json:"location_id"`
	SKU               string        `json:"sku,omitempty"`
	RequestedQuantity int           `json:"requested_quantity"`
	FinalQuantity     *int          `json:"final_quantity,omitempty"`
	Outcome           Outcome       `json:"outcome"`
	Reason            FailureReason `json:"reason,omitempty"`
	OccurredAt        time.Time     `json:"occurred_at"`
}

// InventoryLevelChange is a recently updated level at a location, as
// returned by the polling read the edit grid refreshes from.
type InventoryLevelChange struct {
	LevelID         string
	InventoryItemID string
	Available       int
	UpdatedAt       time.Time
}

// Location is a stock location on the remote side.
type Location struct {
	ID      string
	Name    string
	City    string
	Country string
}
