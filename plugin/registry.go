package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/ticket"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onIngredientPurchased []OnIngredientPurchased
	onIngredientExhausted []OnIngredientExhausted
	onIngredientRestored  []OnIngredientRestored
	onTicketCreated       []OnTicketCreated
	onTicketDeleted       []OnTicketDeleted
	onDriftDetected       []OnDriftDetected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnIngredientPurchased); ok {
		r.onIngredientPurchased = append(r.onIngredientPurchased, v)
	}
	if v, ok := p.(OnIngredientExhausted); ok {
		r.onIngredientExhausted = append(r.onIngredientExhausted, v)
	}
	if v, ok := p.(OnIngredientRestored); ok {
		r.onIngredientRestored = append(r.onIngredientRestored, v)
	}
	if v, ok := p.(OnTicketCreated); ok {
		r.onTicketCreated = append(r.onTicketCreated, v)
	}
	if v, ok := p.(OnTicketDeleted); ok {
		r.onTicketDeleted = append(r.onTicketDeleted, v)
	}
	if v, ok := p.(OnDriftDetected); ok {
		r.onDriftDetected = append(r.onDriftDetected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedHooks(p),
	)

	return nil
}

// implementedHooks lists the hook interfaces p satisfies.
func implementedHooks(p Plugin) []string {
	var hooks []string
	v := reflect.TypeOf(p)

	check := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			hooks = append(hooks, name)
		}
	}

	check(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	check(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	check(reflect.TypeOf((*OnIngredientPurchased)(nil)).Elem(), "OnIngredientPurchased")
	check(reflect.TypeOf((*OnIngredientExhausted)(nil)).Elem(), "OnIngredientExhausted")
	check(reflect.TypeOf((*OnIngredientRestored)(nil)).Elem(), "OnIngredientRestored")
	check(reflect.TypeOf((*OnTicketCreated)(nil)).Elem(), "OnTicketCreated")
	check(reflect.TypeOf((*OnTicketDeleted)(nil)).Elem(), "OnTicketDeleted")
	check(reflect.TypeOf((*OnDriftDetected)(nil)).Elem(), "OnDriftDetected")

	return hooks
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitIngredientPurchased emits an ingredient purchased event.
func (r *Registry) EmitIngredientPurchased(ctx context.Context, ing *ingredient.Ingredient) {
	r.mu.RLock()
	plugins := r.onIngredientPurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnIngredientPurchased", p.Name(), func() error {
			return p.OnIngredientPurchased(ctx, ing)
		})
	}
}

// EmitIngredientExhausted emits an ingredient exhausted event.
func (r *Registry) EmitIngredientExhausted(ctx context.Context, ing *ingredient.Ingredient, finalized int) {
	r.mu.RLock()
	plugins := r.onIngredientExhausted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnIngredientExhausted", p.Name(), func() error {
			return p.OnIngredientExhausted(ctx, ing, finalized)
		})
	}
}

// EmitIngredientRestored emits an ingredient restored event.
func (r *Registry) EmitIngredientRestored(ctx context.Context, ing *ingredient.Ingredient, reopened int) {
	r.mu.RLock()
	plugins := r.onIngredientRestored
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnIngredientRestored", p.Name(), func() error {
			return p.OnIngredientRestored(ctx, ing, reopened)
		})
	}
}

// EmitTicketCreated emits a ticket created event.
func (r *Registry) EmitTicketCreated(ctx context.Context, t *ticket.Ticket) {
	r.mu.RLock()
	plugins := r.onTicketCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnTicketCreated", p.Name(), func() error {
			return p.OnTicketCreated(ctx, t)
		})
	}
}

// EmitTicketDeleted emits a ticket deleted event.
func (r *Registry) EmitTicketDeleted(ctx context.Context, t *ticket.Ticket) {
	r.mu.RLock()
	plugins := r.onTicketDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnTicketDeleted", p.Name(), func() error {
			return p.OnTicketDeleted(ctx, t)
		})
	}
}

// EmitDriftDetected emits a drift detected event.
func (r *Registry) EmitDriftDetected(ctx context.Context, ownerID id.ProfileID, drifts int) {
	r.mu.RLock()
	plugins := r.onDriftDetected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnDriftDetected", p.Name(), func() error {
			return p.OnDriftDetected(ctx, ownerID, drifts)
		})
	}
}

// dispatch runs one hook call and logs its failure. Hook errors never
// reach the caller of the ledger operation.
func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
