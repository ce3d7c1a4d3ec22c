package grain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/plugin"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

// Engine is the food cost ledger. It owns the cascade that keeps
// ingredient usage, ticket costs and dish and meal buckets consistent.
//
// Writes on one profile are serialized inside the engine. Engines in
// different processes sharing a database are kept apart by record
// versions instead: the loser of a race gets ErrConcurrentUpdate, nothing
// it wrote is kept, and the call can be retried (IsRetryable).
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	locks   *scopeLocks
	clock   func() time.Time
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		locks:   newScopeLocks(),
		clock:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock replaces the time source used for timestamps and defaults.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = func() time.Time { return now().UTC() }
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("grain started", "plugins", e.plugins.Count())
	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

// CreateProfile registers an owning profile. Its currency is the currency
// every price, ticket and meal of the profile is kept in.
func (e *Engine) CreateProfile(ctx context.Context, p *profile.Profile) error {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if len(p.Currency) != 3 {
		return ValidationError{Field: "currency", Message: "must be a three-letter ISO 4217 code"}
	}
	if p.ID.IsNil() {
		p.ID = id.NewProfileID()
	}
	p.Entity = e.newEntity()

	return e.store.CreateProfile(ctx, p)
}

// GetProfile retrieves a profile by ID.
func (e *Engine) GetProfile(ctx context.Context, profileID id.ProfileID) (*profile.Profile, error) {
	return e.store.GetProfile(ctx, profileID)
}

// ──────────────────────────────────────────────────
// Ingredients
// ──────────────────────────────────────────────────

// Purchase describes an ingredient entering the pantry.
type Purchase struct {
	OwnerID     id.ProfileID
	ProductName string
	Units       string
	Price       types.Money

	// Amount is the purchased quantity. For a fixed-size product bought
	// whole it is replaced by ProductAmount.
	Amount        float64
	FixedSize     bool
	ProductAmount float64
	Partial       bool

	BestBefore   time.Time
	ExpiryType   ingredient.ExpiryType
	PurchaseDate time.Time
}

// PurchaseIngredient records a newly bought ingredient with nothing
// consumed yet.
func (e *Engine) PurchaseIngredient(ctx context.Context, in Purchase) (*ingredient.Ingredient, error) {
	owner, err := e.store.GetProfile(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	if in.FixedSize && !in.Partial {
		amount = in.ProductAmount
	}

	var errs MultiError
	if in.Price.Currency != owner.Currency {
		errs.Add(ValidationError{Field: "price", Message: fmt.Sprintf("must be in %s, the profile currency", owner.Currency)})
	} else if in.Price.IsNegative() {
		errs.Add(ValidationError{Field: "price", Message: "must not be negative"})
	}
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		errs.Add(ValidationError{Field: "amount", Message: "must be a finite number"})
	case amount < 0:
		errs.Add(ValidationError{Field: "amount", Message: "must not be negative"})
	}
	if in.ExpiryType == "" {
		in.ExpiryType = ingredient.ExpiryBestBefore
	}
	if in.ExpiryType != ingredient.ExpiryBestBefore && in.ExpiryType != ingredient.ExpiryExpires {
		errs.Add(ValidationError{Field: "expiry_type", Message: "must be BBF or EXP"})
	}
	if errs.HasErrors() {
		return nil, errs
	}

	now := e.clock()
	purchased := in.PurchaseDate
	if purchased.IsZero() {
		purchased = now.Truncate(24 * time.Hour)
	}

	ing := &ingredient.Ingredient{
		Entity:       e.newEntity(),
		ID:           id.NewIngredientID(),
		OwnerID:      owner.ID,
		ProductName:  in.ProductName,
		Units:        in.Units,
		Price:        in.Price,
		TotalAmount:  amount,
		BestBefore:   in.BestBefore,
		ExpiryType:   in.ExpiryType,
		PurchaseDate: purchased,
	}

	cs := &store.ChangeSet{
		CreatedIngredients: []*ingredient.Ingredient{ing},
		Events: []*event.Event{{
			ID:           id.NewEventID(),
			OwnerID:      owner.ID,
			Action:       event.ActionIngredientPurchased,
			IngredientID: ing.ID,
			Quantity:     amount,
			Amount:       ing.Price,
			Timestamp:    now,
		}},
	}
	if err := e.store.Commit(ctx, cs); err != nil {
		e.logger.Error("purchase ingredient failed", "owner_id", owner.ID.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	e.plugins.EmitIngredientPurchased(ctx, ing)
	e.logger.Debug("ingredient purchased",
		"ingredient_id", ing.ID.String(),
		"price", ing.Price.String(),
		"amount", amount,
	)
	return ing, nil
}

// GetIngredient retrieves an ingredient by ID.
func (e *Engine) GetIngredient(ctx context.Context, ingredientID id.IngredientID) (*ingredient.Ingredient, error) {
	return e.store.GetIngredient(ctx, ingredientID)
}

// ListIngredients lists a profile's ingredients.
func (e *Engine) ListIngredients(ctx context.Context, ownerID id.ProfileID, opts ingredient.ListOpts) ([]*ingredient.Ingredient, error) {
	return e.store.ListIngredients(ctx, ownerID, opts)
}

// CostPerUnit returns the ingredient's current cost per consumed unit.
func (e *Engine) CostPerUnit(ctx context.Context, ingredientID id.IngredientID) (types.Money, error) {
	ing, err := e.store.GetIngredient(ctx, ingredientID)
	if err != nil {
		return types.Money{}, err
	}
	return ing.CostPerUnit(), nil
}

// SetIngredientExhausted marks an ingredient used up, making every ticket
// drawing on it final, or reopens it. Setting the current value is a no-op
// and writes nothing.
func (e *Engine) SetIngredientExhausted(ctx context.Context, ingredientID id.IngredientID, exhausted bool) error {
	probe, err := e.store.GetIngredient(ctx, ingredientID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(probe.OwnerID)
	defer unlock()

	u := newUnitOfWork(ctx, e.store, e.clock())
	ing, err := u.ingredient(ingredientID)
	if err != nil {
		return err
	}
	if ing.Exhausted == exhausted {
		return nil
	}
	if err := u.setIngredientExhausted(ing, exhausted); err != nil {
		return err
	}

	tickets, _ := u.ticketsOf(ing) //nolint:errcheck // index already loaded by the sweep
	action := event.ActionIngredientExhausted
	if !exhausted {
		action = event.ActionIngredientRestored
	}
	u.record(&event.Event{
		OwnerID:      ing.OwnerID,
		Action:       action,
		IngredientID: ing.ID,
		Quantity:     ing.UsedAmount,
		Amount:       ing.Price,
	})

	if err := u.commit(); err != nil {
		e.logger.Error("set ingredient exhausted failed", "ingredient_id", ingredientID.String(), "error", err)
		return err
	}

	if exhausted {
		e.plugins.EmitIngredientExhausted(ctx, ing, len(tickets))
	} else {
		e.plugins.EmitIngredientRestored(ctx, ing, len(tickets))
	}
	e.logger.Debug("ingredient exhaustion changed",
		"ingredient_id", ing.ID.String(),
		"exhausted", exhausted,
		"tickets", len(tickets),
	)
	return nil
}

// ──────────────────────────────────────────────────
// Meals and dishes
// ──────────────────────────────────────────────────

// CreateMeal records a meal with both cost buckets at zero in the owner's
// currency.
func (e *Engine) CreateMeal(ctx context.Context, m *meal.Meal) error {
	owner, err := e.store.GetProfile(ctx, m.OwnerID)
	if err != nil {
		return err
	}
	if !m.Type.Valid() {
		return ValidationError{Field: "type", Message: fmt.Sprintf("unknown meal type %q", m.Type)}
	}
	if m.Time.IsZero() {
		m.Time = e.clock()
	}
	if m.ID.IsNil() {
		m.ID = id.NewMealID()
	}
	m.Entity = e.newEntity()
	m.CostOpen = types.Zero(owner.Currency)
	m.CostClosed = types.Zero(owner.Currency)

	return e.store.CreateMeal(ctx, m)
}

// GetMeal retrieves a meal by ID.
func (e *Engine) GetMeal(ctx context.Context, mealID id.MealID) (*meal.Meal, error) {
	return e.store.GetMeal(ctx, mealID)
}

// ListMeals lists a profile's meals ordered by time.
func (e *Engine) ListMeals(ctx context.Context, ownerID id.ProfileID, opts meal.ListOpts) ([]*meal.Meal, error) {
	return e.store.ListMeals(ctx, ownerID, opts)
}

// CreateDish records a dish within a meal, with both cost buckets at zero.
func (e *Engine) CreateDish(ctx context.Context, d *dish.Dish) error {
	m, err := e.store.GetMeal(ctx, d.MealID)
	if err != nil {
		return err
	}
	if d.Method == "" {
		d.Method = dish.StyleOther
	}
	if !d.Method.Valid() {
		return ValidationError{Field: "method", Message: fmt.Sprintf("unknown cooking style %q", d.Method)}
	}
	if d.ID.IsNil() {
		d.ID = id.NewDishID()
	}
	d.Entity = e.newEntity()
	d.CostOpen = types.Zero(m.CostOpen.Currency)
	d.CostClosed = types.Zero(m.CostOpen.Currency)

	return e.store.CreateDish(ctx, d)
}

// GetDish retrieves a dish by ID.
func (e *Engine) GetDish(ctx context.Context, dishID id.DishID) (*dish.Dish, error) {
	return e.store.GetDish(ctx, dishID)
}

// ListDishes lists a meal's dishes, most expensive closed cost first.
func (e *Engine) ListDishes(ctx context.Context, mealID id.MealID) ([]*dish.Dish, error) {
	return e.store.ListDishes(ctx, mealID)
}

// ──────────────────────────────────────────────────
// Tickets
// ──────────────────────────────────────────────────

// CreateTicketInput describes a quantity of an ingredient consumed by a
// dish.
type CreateTicketInput struct {
	IngredientID id.IngredientID
	DishID       id.DishID
	Quantity     float64
	Currency     string

	// Exhausted marks the ingredient used up once the ticket is recorded.
	Exhausted bool
}

// CreateTicket records consumption of an ingredient by a dish. The new
// quantity re-prices every ticket on the ingredient and the differences
// flow into their dishes and meals. The whole cascade commits at once.
func (e *Engine) CreateTicket(ctx context.Context, in CreateTicketInput) (*ticket.Ticket, error) {
	if !(in.Quantity > 0) || math.IsInf(in.Quantity, 0) {
		return nil, contractf("create ticket", "quantity must be positive and finite, got %v", in.Quantity)
	}

	probe, err := e.store.GetIngredient(ctx, in.IngredientID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(probe.OwnerID)
	defer unlock()

	now := e.clock()
	u := newUnitOfWork(ctx, e.store, now)

	ing, err := u.ingredient(in.IngredientID)
	if err != nil {
		return nil, err
	}
	if ing.Exhausted {
		return nil, contractf("create ticket", "ingredient %s is exhausted", ing.ID)
	}
	d, err := u.dish(in.DishID)
	if err != nil {
		return nil, err
	}
	m, err := u.meal(d.MealID)
	if err != nil {
		return nil, err
	}
	if m.OwnerID.String() != ing.OwnerID.String() {
		return nil, ValidationError{Field: "dish", Message: "belongs to a different profile than the ingredient"}
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = ing.Price.Currency
	}
	if currency != ing.Price.Currency {
		return nil, fmt.Errorf("%w: ticket in %s, ingredient priced in %s", ErrCurrencyMismatch, currency, ing.Price.Currency)
	}

	t := &ticket.Ticket{
		Entity:       types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:           id.NewTicketID(),
		IngredientID: ing.ID,
		DishID:       d.ID,
		Cost:         types.Zero(currency),
	}
	if err := u.addTicket(ing, t); err != nil {
		return nil, err
	}
	cpu, err := u.updateTicketUsage(t, in.Quantity)
	if err != nil {
		return nil, err
	}
	u.record(&event.Event{
		OwnerID:      ing.OwnerID,
		Action:       event.ActionTicketCreated,
		IngredientID: ing.ID,
		TicketID:     t.ID,
		DishID:       d.ID,
		Quantity:     in.Quantity,
		Amount:       t.Cost,
	})

	if in.Exhausted {
		if err := u.setIngredientExhausted(ing, true); err != nil {
			return nil, err
		}
		u.record(&event.Event{
			OwnerID:      ing.OwnerID,
			Action:       event.ActionIngredientExhausted,
			IngredientID: ing.ID,
			Quantity:     ing.UsedAmount,
			Amount:       ing.Price,
		})
	}

	if err := u.commit(); err != nil {
		e.logger.Error("create ticket failed",
			"ingredient_id", ing.ID.String(),
			"dish_id", d.ID.String(),
			"error", err,
		)
		return nil, err
	}

	e.plugins.EmitTicketCreated(ctx, t)
	if in.Exhausted {
		siblings, _ := u.ticketsOf(ing) //nolint:errcheck // index already loaded
		e.plugins.EmitIngredientExhausted(ctx, ing, len(siblings))
	}
	e.logger.Debug("ticket created",
		"ticket_id", t.ID.String(),
		"ingredient_id", ing.ID.String(),
		"quantity", in.Quantity,
		"cost", t.Cost.String(),
		"cost_per_unit", cpu.String(),
	)
	return t.Clone(), nil
}

// DeleteTicket removes a ticket and returns its quantity to the
// ingredient. If the ticket was final the ingredient is reopened for the
// reversal and exhausted again afterwards, so the remaining tickets end
// final at the re-priced cost.
func (e *Engine) DeleteTicket(ctx context.Context, ticketID id.TicketID) error {
	probeTicket, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	probe, err := e.store.GetIngredient(ctx, probeTicket.IngredientID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(probe.OwnerID)
	defer unlock()

	u := newUnitOfWork(ctx, e.store, e.clock())
	t, err := u.ticket(ticketID)
	if err != nil {
		return err
	}
	ing, err := u.ingredient(t.IngredientID)
	if err != nil {
		return err
	}
	if _, err := u.ticketsOf(ing); err != nil {
		return err
	}
	before := t.Clone()

	wasFinal := t.Final
	if wasFinal {
		if err := u.setIngredientExhausted(ing, false); err != nil {
			return err
		}
		t.Final = false
	}
	cpu, err := u.updateTicketUsage(t, -t.Used)
	if err != nil {
		return err
	}
	u.removeTicket(ing, t)
	if wasFinal {
		if err := u.setIngredientExhausted(ing, true); err != nil {
			return err
		}
	}

	u.record(&event.Event{
		OwnerID:      ing.OwnerID,
		Action:       event.ActionTicketDeleted,
		IngredientID: ing.ID,
		TicketID:     before.ID,
		DishID:       before.DishID,
		Quantity:     before.Used,
		Amount:       before.Cost,
	})

	if err := u.commit(); err != nil {
		e.logger.Error("delete ticket failed", "ticket_id", ticketID.String(), "error", err)
		return err
	}

	e.plugins.EmitTicketDeleted(ctx, before)
	e.logger.Debug("ticket deleted",
		"ticket_id", before.ID.String(),
		"ingredient_id", ing.ID.String(),
		"was_final", wasFinal,
		"cost_per_unit", cpu.String(),
	)
	return nil
}

// GetTicket retrieves a ticket by ID.
func (e *Engine) GetTicket(ctx context.Context, ticketID id.TicketID) (*ticket.Ticket, error) {
	return e.store.GetTicket(ctx, ticketID)
}

// ListTicketsByDish lists the tickets a dish draws on.
func (e *Engine) ListTicketsByDish(ctx context.Context, dishID id.DishID) ([]*ticket.Ticket, error) {
	return e.store.ListTicketsByDish(ctx, dishID)
}

// ListTicketsByIngredient lists the tickets drawing on an ingredient.
func (e *Engine) ListTicketsByIngredient(ctx context.Context, ingredientID id.IngredientID) ([]*ticket.Ticket, error) {
	return e.store.ListTicketsByIngredient(ctx, ingredientID)
}

// ──────────────────────────────────────────────────
// Event log
// ──────────────────────────────────────────────────

// ListEvents returns a profile's ledger events, newest first.
func (e *Engine) ListEvents(ctx context.Context, ownerID id.ProfileID, opts event.QueryOpts) ([]*event.Event, error) {
	return e.store.ListEvents(ctx, ownerID, opts)
}

// PurgeEvents deletes events older than before and reports how many went.
func (e *Engine) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	n, err := e.store.PurgeEvents(ctx, before)
	if err != nil {
		return 0, err
	}
	e.logger.Info("events purged", "before", before, "count", n)
	return n, nil
}

func (e *Engine) newEntity() types.Entity {
	now := e.clock()
	return types.Entity{CreatedAt: now, UpdatedAt: now}
}
