package grain

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

// unitOfWork holds the working set of one ledger operation. Records are
// loaded lazily as the cascade reaches them, mutated as private copies, and
// handed to the store as a single ChangeSet. Nothing is visible to other
// readers until that commit succeeds.
type unitOfWork struct {
	ctx   context.Context
	store store.Store
	now   time.Time

	ingredients map[string]*ingredient.Ingredient
	tickets     map[string]*ticket.Ticket
	dishes      map[string]*dish.Dish
	meals       map[string]*meal.Meal

	// ingredient ID -> ticket IDs drawing on it, in load order.
	byIngredient map[string][]string

	created map[string]bool
	dirty   map[string]bool
	order   []string
	deleted []id.TicketID
	events  []*event.Event
}

func newUnitOfWork(ctx context.Context, s store.Store, now time.Time) *unitOfWork {
	return &unitOfWork{
		ctx:          ctx,
		store:        s,
		now:          now,
		ingredients:  make(map[string]*ingredient.Ingredient),
		tickets:      make(map[string]*ticket.Ticket),
		dishes:       make(map[string]*dish.Dish),
		meals:        make(map[string]*meal.Meal),
		byIngredient: make(map[string][]string),
		created:      make(map[string]bool),
		dirty:        make(map[string]bool),
	}
}

// ──────────────────────────────────────────────────
// Working set
// ──────────────────────────────────────────────────

func (u *unitOfWork) ingredient(ingredientID id.IngredientID) (*ingredient.Ingredient, error) {
	key := ingredientID.String()
	if ing, ok := u.ingredients[key]; ok {
		return ing, nil
	}
	ing, err := u.store.GetIngredient(u.ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	ing = ing.Clone()
	u.ingredients[key] = ing
	return ing, nil
}

func (u *unitOfWork) ticket(ticketID id.TicketID) (*ticket.Ticket, error) {
	key := ticketID.String()
	if t, ok := u.tickets[key]; ok {
		return t, nil
	}
	t, err := u.store.GetTicket(u.ctx, ticketID)
	if err != nil {
		return nil, err
	}
	t = t.Clone()
	u.tickets[key] = t
	return t, nil
}

func (u *unitOfWork) dish(dishID id.DishID) (*dish.Dish, error) {
	key := dishID.String()
	if d, ok := u.dishes[key]; ok {
		return d, nil
	}
	d, err := u.store.GetDish(u.ctx, dishID)
	if err != nil {
		return nil, err
	}
	d = d.Clone()
	u.dishes[key] = d
	return d, nil
}

func (u *unitOfWork) meal(mealID id.MealID) (*meal.Meal, error) {
	key := mealID.String()
	if m, ok := u.meals[key]; ok {
		return m, nil
	}
	m, err := u.store.GetMeal(u.ctx, mealID)
	if err != nil {
		return nil, err
	}
	m = m.Clone()
	u.meals[key] = m
	return m, nil
}

// ticketsOf returns every ticket drawing on ing. The index is read from
// the store once; tickets already in the working set keep their in-flight
// state.
func (u *unitOfWork) ticketsOf(ing *ingredient.Ingredient) ([]*ticket.Ticket, error) {
	key := ing.ID.String()
	ids, ok := u.byIngredient[key]
	if !ok {
		stored, err := u.store.ListTicketsByIngredient(u.ctx, ing.ID)
		if err != nil {
			return nil, err
		}
		ids = make([]string, 0, len(stored))
		for _, t := range stored {
			tk := t.ID.String()
			if _, cached := u.tickets[tk]; !cached {
				u.tickets[tk] = t.Clone()
			}
			ids = append(ids, tk)
		}
		u.byIngredient[key] = ids
	}

	out := make([]*ticket.Ticket, 0, len(ids))
	for _, tk := range ids {
		out = append(out, u.tickets[tk])
	}
	return out, nil
}

// addTicket places a new ticket into the working set and its ingredient's
// index.
func (u *unitOfWork) addTicket(ing *ingredient.Ingredient, t *ticket.Ticket) error {
	if _, err := u.ticketsOf(ing); err != nil {
		return err
	}
	key := t.ID.String()
	u.tickets[key] = t
	u.byIngredient[ing.ID.String()] = append(u.byIngredient[ing.ID.String()], key)
	u.created[key] = true
	u.touch(key)
	return nil
}

// removeTicket drops t from the working set and index and schedules its
// deletion.
func (u *unitOfWork) removeTicket(ing *ingredient.Ingredient, t *ticket.Ticket) {
	key := t.ID.String()
	ingKey := ing.ID.String()

	ids := u.byIngredient[ingKey]
	kept := ids[:0]
	for _, tk := range ids {
		if tk != key {
			kept = append(kept, tk)
		}
	}
	u.byIngredient[ingKey] = kept

	delete(u.tickets, key)
	delete(u.dirty, key)
	if u.created[key] {
		delete(u.created, key)
		return
	}
	u.deleted = append(u.deleted, t.ID)
}

func (u *unitOfWork) touch(key string) {
	if !u.dirty[key] {
		u.dirty[key] = true
		u.order = append(u.order, key)
	}
}

func (u *unitOfWork) record(e *event.Event) {
	e.ID = id.NewEventID()
	e.Timestamp = u.now
	u.events = append(u.events, e)
}

// ──────────────────────────────────────────────────
// Cascade
// ──────────────────────────────────────────────────

// updateIngredientUsage moves the ingredient's consumed quantity by delta,
// re-prices every ticket drawing on it and returns the new cost per unit.
func (u *unitOfWork) updateIngredientUsage(ing *ingredient.Ingredient, delta float64) (types.Money, error) {
	if ing.Exhausted {
		return types.Money{}, contractf("update ingredient usage", "ingredient %s is exhausted", ing.ID)
	}

	ing.UsedAmount = types.AddQuantity(ing.UsedAmount, delta)
	u.touch(ing.ID.String())

	cpu := ing.CostPerUnit()
	siblings, err := u.ticketsOf(ing)
	if err != nil {
		return types.Money{}, err
	}
	for _, t := range siblings {
		if err := u.updateTicketCost(t, cpu); err != nil {
			return types.Money{}, err
		}
	}
	return cpu, nil
}

// updateTicketUsage moves the ticket's quantity by delta and cascades the
// same delta into its ingredient. It returns the ingredient's new cost per
// unit.
func (u *unitOfWork) updateTicketUsage(t *ticket.Ticket, delta float64) (types.Money, error) {
	ing, err := u.ingredient(t.IngredientID)
	if err != nil {
		return types.Money{}, err
	}
	t.Used = types.AddQuantity(t.Used, delta)
	u.touch(t.ID.String())
	return u.updateIngredientUsage(ing, delta)
}

// updateTicketCost re-prices an open ticket at cpu and pushes the
// difference into its dish's open bucket.
func (u *unitOfWork) updateTicketCost(t *ticket.Ticket, cpu types.Money) error {
	if t.Final {
		return contractf("update ticket cost", "ticket %s is finalized", t.ID)
	}
	if cpu.Currency != t.Cost.Currency {
		return fmt.Errorf("%w: ticket %s is priced in %s, ingredient in %s",
			ErrCurrencyMismatch, t.ID, t.Cost.Currency, cpu.Currency)
	}

	cost := cpu.Mul(t.Used).Round()
	delta := cost.Subtract(t.Cost)
	t.Cost = cost
	u.touch(t.ID.String())

	d, err := u.dish(t.DishID)
	if err != nil {
		return err
	}
	return u.costsOpenChange(d, delta)
}

// setTicketFinal moves the ticket's cost between its dish's open and
// closed buckets. Setting the current value is a no-op.
func (u *unitOfWork) setTicketFinal(t *ticket.Ticket, final bool) error {
	if t.Final == final {
		return nil
	}
	d, err := u.dish(t.DishID)
	if err != nil {
		return err
	}

	moved := t.Cost
	if !final {
		moved = moved.Negate()
	}
	if err := u.costsClose(d, moved); err != nil {
		return err
	}
	t.Final = final
	u.touch(t.ID.String())
	return nil
}

// setIngredientExhausted finalizes (or reopens) every ticket drawing on
// ing. Setting the current value is a no-op.
func (u *unitOfWork) setIngredientExhausted(ing *ingredient.Ingredient, exhausted bool) error {
	if ing.Exhausted == exhausted {
		return nil
	}
	siblings, err := u.ticketsOf(ing)
	if err != nil {
		return err
	}
	for _, t := range siblings {
		if err := u.setTicketFinal(t, exhausted); err != nil {
			return err
		}
	}
	ing.Exhausted = exhausted
	u.touch(ing.ID.String())
	return nil
}

// costsOpenChange adds delta to the dish's open bucket and to its meal's.
func (u *unitOfWork) costsOpenChange(d *dish.Dish, delta types.Money) error {
	if delta.IsZero() {
		return nil
	}
	m, err := u.meal(d.MealID)
	if err != nil {
		return err
	}
	d.CostOpen = d.CostOpen.Add(delta)
	m.CostOpen = m.CostOpen.Add(delta)
	u.touch(d.ID.String())
	u.touch(m.ID.String())
	return nil
}

// costsClose moves delta from the open bucket to the closed bucket, on the
// dish and on its meal. A negative delta moves it back.
func (u *unitOfWork) costsClose(d *dish.Dish, delta types.Money) error {
	if delta.IsZero() {
		return nil
	}
	m, err := u.meal(d.MealID)
	if err != nil {
		return err
	}
	d.CostClosed = d.CostClosed.Add(delta)
	d.CostOpen = d.CostOpen.Subtract(delta)
	m.CostClosed = m.CostClosed.Add(delta)
	m.CostOpen = m.CostOpen.Subtract(delta)
	u.touch(d.ID.String())
	u.touch(m.ID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Commit
// ──────────────────────────────────────────────────

// changeSet collects every touched record in the order it was first
// touched.
func (u *unitOfWork) changeSet() *store.ChangeSet {
	cs := &store.ChangeSet{Events: u.events, DeletedTickets: u.deleted}

	for _, key := range u.order {
		if !u.dirty[key] {
			continue
		}
		if ing, ok := u.ingredients[key]; ok {
			ing.UpdatedAt = u.now
			if u.created[key] {
				cs.CreatedIngredients = append(cs.CreatedIngredients, ing)
			} else {
				ing.Version++
				cs.Ingredients = append(cs.Ingredients, ing)
			}
			continue
		}
		if t, ok := u.tickets[key]; ok {
			t.UpdatedAt = u.now
			if u.created[key] {
				cs.CreatedTickets = append(cs.CreatedTickets, t)
			} else {
				t.Version++
				cs.Tickets = append(cs.Tickets, t)
			}
			continue
		}
		if d, ok := u.dishes[key]; ok {
			d.UpdatedAt = u.now
			d.Version++
			cs.Dishes = append(cs.Dishes, d)
			continue
		}
		if m, ok := u.meals[key]; ok {
			m.UpdatedAt = u.now
			m.Version++
			cs.Meals = append(cs.Meals, m)
		}
	}
	return cs
}

func (u *unitOfWork) commit() error {
	cs := u.changeSet()
	if cs.Empty() {
		return nil
	}
	if err := u.store.Commit(u.ctx, cs); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}
