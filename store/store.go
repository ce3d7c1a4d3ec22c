package store

import (
	"context"
	"time"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/ticket"
)

// Store is the unified storage interface for all Grain records.
// Methods are declared explicitly rather than by embedding the per-package
// interfaces, whose method names collide.
//
// Ledger state (ingredient usage, ticket costs, dish and meal buckets) is
// only ever written through Commit.
type Store interface {
	// Profile methods
	CreateProfile(ctx context.Context, p *profile.Profile) error
	GetProfile(ctx context.Context, profileID id.ProfileID) (*profile.Profile, error)
	ListProfiles(ctx context.Context, userRef string) ([]*profile.Profile, error)

	// Ingredient methods
	GetIngredient(ctx context.Context, ingredientID id.IngredientID) (*ingredient.Ingredient, error)
	ListIngredients(ctx context.Context, ownerID id.ProfileID, opts ingredient.ListOpts) ([]*ingredient.Ingredient, error)

	// Ticket methods
	GetTicket(ctx context.Context, ticketID id.TicketID) (*ticket.Ticket, error)
	ListTicketsByIngredient(ctx context.Context, ingredientID id.IngredientID) ([]*ticket.Ticket, error)
	ListTicketsByDish(ctx context.Context, dishID id.DishID) ([]*ticket.Ticket, error)

	// Dish methods
	CreateDish(ctx context.Context, d *dish.Dish) error
	GetDish(ctx context.Context, dishID id.DishID) (*dish.Dish, error)
	ListDishes(ctx context.Context, mealID id.MealID) ([]*dish.Dish, error)

	// Meal methods
	CreateMeal(ctx context.Context, m *meal.Meal) error
	GetMeal(ctx context.Context, mealID id.MealID) (*meal.Meal, error)
	ListMeals(ctx context.Context, ownerID id.ProfileID, opts meal.ListOpts) ([]*meal.Meal, error)

	// Event methods
	ListEvents(ctx context.Context, ownerID id.ProfileID, opts event.QueryOpts) ([]*event.Event, error)
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)

	// Commit applies every record in cs atomically: all of it or none of it.
	Commit(ctx context.Context, cs *ChangeSet) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ChangeSet is the write half of one ledger operation.
//
// Updated ingredients, tickets, dishes and meals carry the version they
// were read at plus one. Commit fails with grain.ErrConcurrentUpdate, and
// writes nothing, when any of them was changed since it was read, so
// engines in separate processes can share one database.
type ChangeSet struct {
	CreatedIngredients []*ingredient.Ingredient
	Ingredients        []*ingredient.Ingredient
	CreatedTickets     []*ticket.Ticket
	Tickets            []*ticket.Ticket
	DeletedTickets     []id.TicketID
	Dishes             []*dish.Dish
	Meals              []*meal.Meal
	Events             []*event.Event
}

// Empty reports whether cs carries no writes.
func (cs *ChangeSet) Empty() bool {
	return len(cs.CreatedIngredients) == 0 && len(cs.Ingredients) == 0 &&
		len(cs.CreatedTickets) == 0 && len(cs.Tickets) == 0 && len(cs.DeletedTickets) == 0 &&
		len(cs.Dishes) == 0 && len(cs.Meals) == 0 && len(cs.Events) == 0
}
