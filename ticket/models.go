// Package ticket defines a dish's claim on a quantity of one ingredient.
package ticket

import (
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// State is the finalization state of a ticket.
type State string

const (
	StateOpen      State = "open"
	StateFinalized State = "finalized"
)

// Ticket apportions part of an ingredient's price to a dish.
// Cost always equals Used * ingredient cost-per-unit between engine calls;
// a Final ticket's cost sits in its dish's closed bucket and is frozen.
type Ticket struct {
	types.Entity
	ID           id.TicketID     `json:"id"`
	IngredientID id.IngredientID `json:"ingredient_id"`
	DishID       id.DishID       `json:"dish_id"`
	Used         float64         `json:"used"`
	Cost         types.Money     `json:"cost"`
	Final        bool            `json:"final"`
}

// State reports Open or Finalized.
func (t *Ticket) State() State {
	if t.Final {
		return StateFinalized
	}
	return StateOpen
}

// Clone returns a copy safe to mutate.
func (t *Ticket) Clone() *Ticket {
	c := *t
	return &c
}
