// Package dish defines cooked dishes and their open/closed cost buckets.
package dish

import (
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// CookingStyle is how the dish was prepared.
type CookingStyle string

const (
	StyleRaw     CookingStyle = "raw"
	StyleBoiled  CookingStyle = "boiled"
	StyleFried   CookingStyle = "fried"
	StyleBaked   CookingStyle = "baked"
	StyleGrilled CookingStyle = "grilled"
	StyleSteamed CookingStyle = "steamed"
	StyleOther   CookingStyle = "other"
)

// Valid reports whether s is a known style.
func (s CookingStyle) Valid() bool {
	switch s {
	case StyleRaw, StyleBoiled, StyleFried, StyleBaked, StyleGrilled, StyleSteamed, StyleOther:
		return true
	}
	return false
}

// Dish aggregates tickets. CostOpen + CostClosed equals the sum of its
// ticket costs between engine calls.
type Dish struct {
	types.Entity
	ID         id.DishID    `json:"id"`
	MealID     id.MealID    `json:"meal_id"`
	Name       string       `json:"name"`
	Method     CookingStyle `json:"method"`
	CostOpen   types.Money  `json:"cost_open"`
	CostClosed types.Money  `json:"cost_closed"`
}

// Total is CostOpen + CostClosed.
func (d *Dish) Total() types.Money { return d.CostOpen.Add(d.CostClosed) }

// Clone returns a copy safe to mutate.
func (d *Dish) Clone() *Dish {
	c := *d
	return &c
}
