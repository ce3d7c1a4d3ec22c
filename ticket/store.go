package ticket

import (
	"context"

	"github.com/xraph/grain/id"
)

// Store reads tickets. Tickets are written only through a store ChangeSet.
type Store interface {
	Get(ctx context.Context, ticketID id.TicketID) (*Ticket, error)
	ListByIngredient(ctx context.Context, ingredientID id.IngredientID) ([]*Ticket, error)
	ListByDish(ctx context.Context, dishID id.DishID) ([]*Ticket, error)
}
