// Package memory provides an in-memory Store for tests and embedded use.
// Records are copied on the way in and on the way out, so callers never
// share state with the store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/ticket"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// insertion sequence, used to keep listings stable
	seq   int64
	order map[string]int64

	profiles    map[string]*profile.Profile
	ingredients map[string]*ingredient.Ingredient
	tickets     map[string]*ticket.Ticket
	dishes      map[string]*dish.Dish
	meals       map[string]*meal.Meal
	events      map[string]*event.Event
}

func New() *Store {
	return &Store{
		order:       make(map[string]int64),
		profiles:    make(map[string]*profile.Profile),
		ingredients: make(map[string]*ingredient.Ingredient),
		tickets:     make(map[string]*ticket.Ticket),
		dishes:      make(map[string]*dish.Dish),
		meals:       make(map[string]*meal.Meal),
		events:      make(map[string]*event.Event),
	}
}

func (s *Store) stamp(key string) {
	s.seq++
	s.order[key] = s.seq
}

func (s *Store) before(a, b string) int {
	return cmp.Compare(s.order[a], s.order[b])
}

// ──────────────────────────────────────────────────
// Profile Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return grain.ErrStoreClosed
	}
	key := p.ID.String()
	if _, exists := s.profiles[key]; exists {
		return grain.ErrAlreadyExists
	}
	c := *p
	s.profiles[key] = &c
	s.stamp(key)
	return nil
}

func (s *Store) GetProfile(_ context.Context, profileID id.ProfileID) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[profileID.String()]; ok {
		c := *p
		return &c, nil
	}
	return nil, grain.ErrProfileNotFound
}

func (s *Store) ListProfiles(_ context.Context, userRef string) ([]*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*profile.Profile, 0)
	for _, p := range s.profiles {
		if userRef == "" || p.UserRef == userRef {
			c := *p
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *profile.Profile) int {
		return s.before(a.ID.String(), b.ID.String())
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Ingredient Store implementation
// ──────────────────────────────────────────────────

func (s *Store) GetIngredient(_ context.Context, ingredientID id.IngredientID) (*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ing, ok := s.ingredients[ingredientID.String()]; ok {
		return ing.Clone(), nil
	}
	return nil, grain.ErrIngredientNotFound
}

func (s *Store) ListIngredients(_ context.Context, ownerID id.ProfileID, opts ingredient.ListOpts) ([]*ingredient.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := ownerID.String()
	result := make([]*ingredient.Ingredient, 0)
	for _, ing := range s.ingredients {
		if ing.OwnerID.String() != owner {
			continue
		}
		if opts.OnlyAvailable && ing.Exhausted {
			continue
		}
		result = append(result, ing.Clone())
	}

	slices.SortFunc(result, func(a, b *ingredient.Ingredient) int {
		if opts.OnlyAvailable {
			if c := cmp.Compare(b.UsedAmount, a.UsedAmount); c != 0 {
				return c
			}
		}
		return s.before(a.ID.String(), b.ID.String())
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Ticket Store implementation
// ──────────────────────────────────────────────────

func (s *Store) GetTicket(_ context.Context, ticketID id.TicketID) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tickets[ticketID.String()]; ok {
		return t.Clone(), nil
	}
	return nil, grain.ErrTicketNotFound
}

func (s *Store) ListTicketsByIngredient(_ context.Context, ingredientID id.IngredientID) ([]*ticket.Ticket, error) {
	key := ingredientID.String()
	return s.listTickets(func(t *ticket.Ticket) bool { return t.IngredientID.String() == key }), nil
}

func (s *Store) ListTicketsByDish(_ context.Context, dishID id.DishID) ([]*ticket.Ticket, error) {
	key := dishID.String()
	return s.listTickets(func(t *ticket.Ticket) bool { return t.DishID.String() == key }), nil
}

func (s *Store) listTickets(match func(*ticket.Ticket) bool) []*ticket.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ticket.Ticket, 0)
	for _, t := range s.tickets {
		if match(t) {
			result = append(result, t.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *ticket.Ticket) int {
		return s.before(a.ID.String(), b.ID.String())
	})
	return result
}

// ──────────────────────────────────────────────────
// Dish Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateDish(_ context.Context, d *dish.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return grain.ErrStoreClosed
	}
	key := d.ID.String()
	if _, exists := s.dishes[key]; exists {
		return grain.ErrAlreadyExists
	}
	if _, ok := s.meals[d.MealID.String()]; !ok {
		return grain.ErrMealNotFound
	}
	s.dishes[key] = d.Clone()
	s.stamp(key)
	return nil
}

func (s *Store) GetDish(_ context.Context, dishID id.DishID) (*dish.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.dishes[dishID.String()]; ok {
		return d.Clone(), nil
	}
	return nil, grain.ErrDishNotFound
}

func (s *Store) ListDishes(_ context.Context, mealID id.MealID) ([]*dish.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := mealID.String()
	result := make([]*dish.Dish, 0)
	for _, d := range s.dishes {
		if d.MealID.String() == key {
			result = append(result, d.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *dish.Dish) int {
		if c := b.CostClosed.Amount.Cmp(a.CostClosed.Amount); c != 0 {
			return c
		}
		if c := b.CostOpen.Amount.Cmp(a.CostOpen.Amount); c != 0 {
			return c
		}
		return s.before(a.ID.String(), b.ID.String())
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Meal Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateMeal(_ context.Context, m *meal.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return grain.ErrStoreClosed
	}
	key := m.ID.String()
	if _, exists := s.meals[key]; exists {
		return grain.ErrAlreadyExists
	}
	s.meals[key] = m.Clone()
	s.stamp(key)
	return nil
}

func (s *Store) GetMeal(_ context.Context, mealID id.MealID) (*meal.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.meals[mealID.String()]; ok {
		return m.Clone(), nil
	}
	return nil, grain.ErrMealNotFound
}

func (s *Store) ListMeals(_ context.Context, ownerID id.ProfileID, opts meal.ListOpts) ([]*meal.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := ownerID.String()
	result := make([]*meal.Meal, 0)
	for _, m := range s.meals {
		if m.OwnerID.String() != owner {
			continue
		}
		if !opts.From.IsZero() && m.Time.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && !m.Time.Before(opts.To) {
			continue
		}
		result = append(result, m.Clone())
	}
	slices.SortFunc(result, func(a, b *meal.Meal) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return s.before(a.ID.String(), b.ID.String())
	})
	return paginate(result, 0, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Event Store implementation
// ──────────────────────────────────────────────────

func (s *Store) ListEvents(_ context.Context, ownerID id.ProfileID, opts event.QueryOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := ownerID.String()
	result := make([]*event.Event, 0)
	for _, e := range s.events {
		if e.OwnerID.String() != owner {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		if !opts.Start.IsZero() && e.Timestamp.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !e.Timestamp.Before(opts.End) {
			continue
		}
		c := *e
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *event.Event) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return s.before(b.ID.String(), a.ID.String())
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) PurgeEvents(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.events {
		if e.Timestamp.Before(before) {
			delete(s.events, key)
			delete(s.order, key)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Commit
// ──────────────────────────────────────────────────

// Commit checks every record in cs before applying any of them, all under
// the write lock.
func (s *Store) Commit(_ context.Context, cs *store.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return grain.ErrStoreClosed
	}
	if err := s.check(cs); err != nil {
		return err
	}

	for _, ing := range cs.CreatedIngredients {
		key := ing.ID.String()
		s.ingredients[key] = ing.Clone()
		s.stamp(key)
	}
	for _, ing := range cs.Ingredients {
		s.ingredients[ing.ID.String()] = ing.Clone()
	}
	for _, t := range cs.CreatedTickets {
		key := t.ID.String()
		s.tickets[key] = t.Clone()
		s.stamp(key)
	}
	for _, t := range cs.Tickets {
		s.tickets[t.ID.String()] = t.Clone()
	}
	for _, ticketID := range cs.DeletedTickets {
		key := ticketID.String()
		delete(s.tickets, key)
		delete(s.order, key)
	}
	for _, d := range cs.Dishes {
		s.dishes[d.ID.String()] = d.Clone()
	}
	for _, m := range cs.Meals {
		s.meals[m.ID.String()] = m.Clone()
	}
	for _, e := range cs.Events {
		key := e.ID.String()
		c := *e
		s.events[key] = &c
		s.stamp(key)
	}
	return nil
}

func (s *Store) check(cs *store.ChangeSet) error {
	for _, ing := range cs.CreatedIngredients {
		if _, exists := s.ingredients[ing.ID.String()]; exists {
			return fmt.Errorf("ingredient %s: %w", ing.ID, grain.ErrAlreadyExists)
		}
		if _, ok := s.profiles[ing.OwnerID.String()]; !ok {
			return grain.ErrProfileNotFound
		}
	}
	for _, ing := range cs.Ingredients {
		stored, ok := s.ingredients[ing.ID.String()]
		if !ok {
			return grain.ErrIngredientNotFound
		}
		if err := checkVersion("ingredient", ing.ID, stored.Version, ing.Version); err != nil {
			return err
		}
	}
	for _, t := range cs.CreatedTickets {
		if _, exists := s.tickets[t.ID.String()]; exists {
			return fmt.Errorf("ticket %s: %w", t.ID, grain.ErrAlreadyExists)
		}
	}
	for _, t := range cs.Tickets {
		stored, ok := s.tickets[t.ID.String()]
		if !ok {
			return grain.ErrTicketNotFound
		}
		if err := checkVersion("ticket", t.ID, stored.Version, t.Version); err != nil {
			return err
		}
	}
	for _, ticketID := range cs.DeletedTickets {
		if _, ok := s.tickets[ticketID.String()]; !ok {
			return grain.ErrTicketNotFound
		}
	}
	for _, d := range cs.Dishes {
		stored, ok := s.dishes[d.ID.String()]
		if !ok {
			return grain.ErrDishNotFound
		}
		if err := checkVersion("dish", d.ID, stored.Version, d.Version); err != nil {
			return err
		}
	}
	for _, m := range cs.Meals {
		stored, ok := s.meals[m.ID.String()]
		if !ok {
			return grain.ErrMealNotFound
		}
		if err := checkVersion("meal", m.ID, stored.Version, m.Version); err != nil {
			return err
		}
	}
	return nil
}

// checkVersion accepts an update only on top of the version it was read at.
func checkVersion(kind string, recordID id.ID, stored, next int64) error {
	if next != stored+1 {
		return fmt.Errorf("%s %s at version %d, update expects %d: %w",
			kind, recordID, stored, next-1, grain.ErrConcurrentUpdate)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return grain.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// paginate treats a non-positive limit as no limit and a negative offset
// as zero.
func paginate[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
