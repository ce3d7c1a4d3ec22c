// Package event defines the ledger's append-only event log.
package event

import (
	"time"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// Action names what happened.
type Action string

const (
	ActionIngredientPurchased Action = "ingredient.purchased"
	ActionIngredientExhausted Action = "ingredient.exhausted"
	ActionIngredientRestored  Action = "ingredient.restored"
	ActionTicketCreated       Action = "ticket.created"
	ActionTicketDeleted       Action = "ticket.deleted"
)

// Event records one ledger operation. It is written in the same commit as
// the state change it describes.
type Event struct {
	ID           id.EventID      `json:"id"`
	OwnerID      id.ProfileID    `json:"owner_id"`
	Action       Action          `json:"action"`
	IngredientID id.IngredientID `json:"ingredient_id,omitempty"`
	TicketID     id.TicketID     `json:"ticket_id,omitempty"`
	DishID       id.DishID       `json:"dish_id,omitempty"`
	Quantity     float64         `json:"quantity,omitempty"`
	Amount       types.Money     `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
}
