// Package audithook bridges Grain ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit library directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/plugin"
	"github.com/xraph/grain/ticket"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnIngredientPurchased = (*Extension)(nil)
	_ plugin.OnIngredientExhausted = (*Extension)(nil)
	_ plugin.OnIngredientRestored  = (*Extension)(nil)
	_ plugin.OnTicketCreated       = (*Extension)(nil)
	_ plugin.OnTicketDeleted       = (*Extension)(nil)
	_ plugin.OnDriftDetected       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Grain ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ingredient hooks
// ──────────────────────────────────────────────────

// OnIngredientPurchased implements plugin.OnIngredientPurchased.
func (e *Extension) OnIngredientPurchased(ctx context.Context, ing *ingredient.Ingredient) error {
	return e.record(ctx, ActionIngredientPurchased, SeverityInfo, OutcomeSuccess,
		ResourceIngredient, ing.ID.String(), CategoryPantry, nil,
		"owner_id", ing.OwnerID.String(),
		"product", ing.ProductName,
		"price", ing.Price.String(),
		"total_amount", ing.TotalAmount,
	)
}

// OnIngredientExhausted implements plugin.OnIngredientExhausted.
func (e *Extension) OnIngredientExhausted(ctx context.Context, ing *ingredient.Ingredient, finalized int) error {
	severity := SeverityInfo
	if ing.Overdrawn() {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionIngredientExhausted, severity, OutcomeSuccess,
		ResourceIngredient, ing.ID.String(), CategoryPantry, nil,
		"owner_id", ing.OwnerID.String(),
		"used_amount", ing.UsedAmount,
		"total_amount", ing.TotalAmount,
		"finalized_tickets", finalized,
	)
}

// OnIngredientRestored implements plugin.OnIngredientRestored.
func (e *Extension) OnIngredientRestored(ctx context.Context, ing *ingredient.Ingredient, reopened int) error {
	return e.record(ctx, ActionIngredientRestored, SeverityInfo, OutcomeSuccess,
		ResourceIngredient, ing.ID.String(), CategoryPantry, nil,
		"owner_id", ing.OwnerID.String(),
		"reopened_tickets", reopened,
	)
}

// ──────────────────────────────────────────────────
// Ticket hooks
// ──────────────────────────────────────────────────

// OnTicketCreated implements plugin.OnTicketCreated.
func (e *Extension) OnTicketCreated(ctx context.Context, t *ticket.Ticket) error {
	return e.record(ctx, ActionTicketCreated, SeverityInfo, OutcomeSuccess,
		ResourceTicket, t.ID.String(), CategoryConsumption, nil,
		"ingredient_id", t.IngredientID.String(),
		"dish_id", t.DishID.String(),
		"used", t.Used,
		"cost", t.Cost.String(),
		"state", string(t.State()),
	)
}

// OnTicketDeleted implements plugin.OnTicketDeleted.
func (e *Extension) OnTicketDeleted(ctx context.Context, t *ticket.Ticket) error {
	return e.record(ctx, ActionTicketDeleted, SeverityInfo, OutcomeSuccess,
		ResourceTicket, t.ID.String(), CategoryConsumption, nil,
		"ingredient_id", t.IngredientID.String(),
		"dish_id", t.DishID.String(),
		"used", t.Used,
		"cost", t.Cost.String(),
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftDetected implements plugin.OnDriftDetected.
func (e *Extension) OnDriftDetected(ctx context.Context, ownerID id.ProfileID, drifts int) error {
	return e.record(ctx, ActionDriftDetected, SeverityCritical, OutcomeFailure,
		ResourceProfile, ownerID.String(), CategoryIntegrity,
		fmt.Errorf("%d stored totals disagree with their inputs", drifts),
		"drifts", drifts,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
