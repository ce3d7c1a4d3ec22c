package grain

import (
	"context"
	"time"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/types"
)

// slotOrder is the order meal types appear within a day.
var slotOrder = []meal.Type{meal.TypeBreakfast, meal.TypeLunch, meal.TypeDinner, meal.TypeSnack}

// MealSlot totals the meals of one type on one day.
type MealSlot struct {
	Type   meal.Type   `json:"type"`
	Meals  []id.MealID `json:"meals"`
	Open   types.Money `json:"open"`
	Closed types.Money `json:"closed"`
}

// Total is Open plus Closed.
func (s MealSlot) Total() types.Money { return s.Open.Add(s.Closed) }

// DaySummary totals one calendar day. Slots holds only meal types that
// occur that day, in breakfast, lunch, dinner, snack order.
type DaySummary struct {
	Date   time.Time   `json:"date"`
	Slots  []MealSlot  `json:"slots"`
	Open   types.Money `json:"open"`
	Closed types.Money `json:"closed"`
}

// Total is Open plus Closed.
func (d DaySummary) Total() types.Money { return d.Open.Add(d.Closed) }

// SummarizeMeals groups a profile's meals in [from, to) by UTC day and
// meal type and totals both cost buckets. Days without meals are omitted.
func (e *Engine) SummarizeMeals(ctx context.Context, ownerID id.ProfileID, from, to time.Time) ([]DaySummary, error) {
	owner, err := e.store.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !to.IsZero() && !from.IsZero() && !to.After(from) {
		return nil, ValidationError{Field: "to", Message: "must be after from"}
	}

	meals, err := e.store.ListMeals(ctx, owner.ID, meal.ListOpts{From: from, To: to})
	if err != nil {
		return nil, err
	}

	var days []DaySummary
	index := make(map[string]int)

	for _, m := range meals {
		day := m.Time.UTC().Truncate(24 * time.Hour)
		key := day.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			days = append(days, DaySummary{
				Date:   day,
				Open:   types.Zero(owner.Currency),
				Closed: types.Zero(owner.Currency),
			})
			i = len(days) - 1
			index[key] = i
		}
		addToDay(&days[i], m, owner.Currency)
	}

	for i := range days {
		days[i].Slots = orderSlots(days[i].Slots)
	}
	return days, nil
}

func addToDay(d *DaySummary, m *meal.Meal, currency string) {
	d.Open = d.Open.Add(m.CostOpen)
	d.Closed = d.Closed.Add(m.CostClosed)

	for i := range d.Slots {
		if d.Slots[i].Type == m.Type {
			d.Slots[i].Meals = append(d.Slots[i].Meals, m.ID)
			d.Slots[i].Open = d.Slots[i].Open.Add(m.CostOpen)
			d.Slots[i].Closed = d.Slots[i].Closed.Add(m.CostClosed)
			return
		}
	}
	d.Slots = append(d.Slots, MealSlot{
		Type:   m.Type,
		Meals:  []id.MealID{m.ID},
		Open:   types.Zero(currency).Add(m.CostOpen),
		Closed: types.Zero(currency).Add(m.CostClosed),
	})
}

func orderSlots(slots []MealSlot) []MealSlot {
	out := make([]MealSlot, 0, len(slots))
	for _, t := range slotOrder {
		for _, s := range slots {
			if s.Type == t {
				out = append(out, s)
			}
		}
	}
	return out
}
