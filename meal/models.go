// Package meal defines meals, the top of the cost hierarchy.
package meal

import (
	"time"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// Type is the slot of the day a meal fills.
type Type string

const (
	TypeBreakfast Type = "breakfast"
	TypeLunch     Type = "lunch"
	TypeDinner    Type = "dinner"
	TypeSnack     Type = "snack"
)

// Valid reports whether t is a known meal type.
func (t Type) Valid() bool {
	switch t {
	case TypeBreakfast, TypeLunch, TypeDinner, TypeSnack:
		return true
	}
	return false
}

// Meal mirrors Dish one level up: CostOpen + CostClosed equals the sum of
// its dishes' totals.
type Meal struct {
	types.Entity
	ID         id.MealID    `json:"id"`
	OwnerID    id.ProfileID `json:"owner_id"`
	Time       time.Time    `json:"time"`
	Type       Type         `json:"type"`
	Consumer   string       `json:"consumer,omitempty"`
	CostOpen   types.Money  `json:"cost_open"`
	CostClosed types.Money  `json:"cost_closed"`
}

// Total is CostOpen + CostClosed.
func (m *Meal) Total() types.Money { return m.CostOpen.Add(m.CostClosed) }

// Clone returns a copy safe to mutate.
func (m *Meal) Clone() *Meal {
	c := *m
	return &c
}
