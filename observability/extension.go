// Package observability provides a metrics extension for Grain that records
// ledger event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/plugin"
	"github.com/xraph/grain/ticket"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnIngredientPurchased = (*MetricsExtension)(nil)
	_ plugin.OnIngredientExhausted = (*MetricsExtension)(nil)
	_ plugin.OnIngredientRestored  = (*MetricsExtension)(nil)
	_ plugin.OnTicketCreated       = (*MetricsExtension)(nil)
	_ plugin.OnTicketDeleted       = (*MetricsExtension)(nil)
	_ plugin.OnDriftDetected       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a Grain plugin to track pantry and consumption activity.
type MetricsExtension struct {
	factory MetricFactory

	// Ingredient metrics
	IngredientPurchased Counter
	IngredientExhausted Counter
	IngredientRestored  Counter
	IngredientOverdrawn Counter
	PurchasePrice       Histogram

	// Ticket metrics
	TicketCreated    Counter
	TicketDeleted    Counter
	TicketsFinalized Counter
	TicketsReopened  Counter
	TicketQuantity   Histogram

	// Reconciliation metrics
	DriftRuns    Counter
	DriftRecords Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		IngredientPurchased: factory.Counter("grain.ingredient.purchased"),
		IngredientExhausted: factory.Counter("grain.ingredient.exhausted"),
		IngredientRestored:  factory.Counter("grain.ingredient.restored"),
		IngredientOverdrawn: factory.Counter("grain.ingredient.overdrawn"),
		PurchasePrice:       factory.Histogram("grain.ingredient.price"),

		TicketCreated:    factory.Counter("grain.ticket.created"),
		TicketDeleted:    factory.Counter("grain.ticket.deleted"),
		TicketsFinalized: factory.Counter("grain.ticket.finalized"),
		TicketsReopened:  factory.Counter("grain.ticket.reopened"),
		TicketQuantity:   factory.Histogram("grain.ticket.quantity"),

		DriftRuns:    factory.Counter("grain.reconcile.drift_runs"),
		DriftRecords: factory.Counter("grain.reconcile.drift_records"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Ingredient hooks
// ──────────────────────────────────────────────────

// OnIngredientPurchased implements plugin.OnIngredientPurchased.
func (m *MetricsExtension) OnIngredientPurchased(_ context.Context, ing *ingredient.Ingredient) error {
	m.IngredientPurchased.Inc()
	m.PurchasePrice.Observe(ing.Price.Amount.InexactFloat64())
	return nil
}

// OnIngredientExhausted implements plugin.OnIngredientExhausted.
func (m *MetricsExtension) OnIngredientExhausted(_ context.Context, ing *ingredient.Ingredient, finalized int) error {
	m.IngredientExhausted.Inc()
	m.TicketsFinalized.Add(float64(finalized))
	if ing.Overdrawn() {
		m.IngredientOverdrawn.Inc()
	}
	return nil
}

// OnIngredientRestored implements plugin.OnIngredientRestored.
func (m *MetricsExtension) OnIngredientRestored(_ context.Context, _ *ingredient.Ingredient, reopened int) error {
	m.IngredientRestored.Inc()
	m.TicketsReopened.Add(float64(reopened))
	return nil
}

// ──────────────────────────────────────────────────
// Ticket hooks
// ──────────────────────────────────────────────────

// OnTicketCreated implements plugin.OnTicketCreated.
func (m *MetricsExtension) OnTicketCreated(_ context.Context, t *ticket.Ticket) error {
	m.TicketCreated.Inc()
	m.TicketQuantity.Observe(t.Used)
	return nil
}

// OnTicketDeleted implements plugin.OnTicketDeleted.
func (m *MetricsExtension) OnTicketDeleted(_ context.Context, _ *ticket.Ticket) error {
	m.TicketDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftDetected implements plugin.OnDriftDetected.
func (m *MetricsExtension) OnDriftDetected(_ context.Context, _ id.ProfileID, drifts int) error {
	m.DriftRuns.Inc()
	m.DriftRecords.Add(float64(drifts))
	return nil
}
