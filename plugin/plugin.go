// Package plugin provides an extensible plugin system for Grain.
// Plugins hook into ledger lifecycle events. Every ledger hook fires only
// after the operation that caused it has been committed.
package plugin

import (
	"context"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/ticket"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *grain.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ingredient hooks
// ──────────────────────────────────────────────────

// OnIngredientPurchased is called when an ingredient enters the pantry.
type OnIngredientPurchased interface {
	Plugin
	OnIngredientPurchased(ctx context.Context, ing *ingredient.Ingredient) error
}

// OnIngredientExhausted is called when an ingredient is marked exhausted.
// finalized is the number of tickets whose cost became final.
type OnIngredientExhausted interface {
	Plugin
	OnIngredientExhausted(ctx context.Context, ing *ingredient.Ingredient, finalized int) error
}

// OnIngredientRestored is called when an exhausted ingredient is reopened.
type OnIngredientRestored interface {
	Plugin
	OnIngredientRestored(ctx context.Context, ing *ingredient.Ingredient, reopened int) error
}

// ──────────────────────────────────────────────────
// Ticket hooks
// ──────────────────────────────────────────────────

// OnTicketCreated is called after a ticket has been recorded.
type OnTicketCreated interface {
	Plugin
	OnTicketCreated(ctx context.Context, t *ticket.Ticket) error
}

// OnTicketDeleted is called after a ticket has been removed. t carries the
// ticket as it was before deletion.
type OnTicketDeleted interface {
	Plugin
	OnTicketDeleted(ctx context.Context, t *ticket.Ticket) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnDriftDetected is called when a reconcile run finds stored totals that
// disagree with their inputs.
type OnDriftDetected interface {
	Plugin
	OnDriftDetected(ctx context.Context, ownerID id.ProfileID, drifts int) error
}
