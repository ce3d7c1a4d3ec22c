package grain

import (
	"context"
	"fmt"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/types"
)

// DriftKind names the total that disagreed with its inputs.
type DriftKind string

const (
	// DriftTicketCost: an open ticket's cost is not used × cost per unit.
	DriftTicketCost DriftKind = "ticket_cost"
	// DriftDishOpen: a dish's open bucket is not the sum of its open tickets.
	DriftDishOpen DriftKind = "dish_open"
	// DriftDishClosed: a dish's closed bucket is not the sum of its final tickets.
	DriftDishClosed DriftKind = "dish_closed"
	// DriftMealOpen: a meal's open bucket is not the sum of its dishes'.
	DriftMealOpen DriftKind = "meal_open"
	// DriftMealClosed: a meal's closed bucket is not the sum of its dishes'.
	DriftMealClosed DriftKind = "meal_closed"
	// DriftTicketState: a ticket's final flag disagrees with its
	// ingredient's exhausted flag.
	DriftTicketState DriftKind = "ticket_state"
)

// Drift is one stored total that disagrees with the records it derives from.
type Drift struct {
	Kind     DriftKind   `json:"kind"`
	RecordID string      `json:"record_id"`
	Expected types.Money `json:"expected"`
	Actual   types.Money `json:"actual"`
}

func (d Drift) Error() string {
	return fmt.Sprintf("grain: %s drift on %s: expected %s, stored %s",
		d.Kind, d.RecordID, d.Expected.FormatMajor(), d.Actual.FormatMajor())
}

// Unwrap lets errors.Is match ErrDrift.
func (d Drift) Unwrap() error { return ErrDrift }

// ReconcileReport is the outcome of one Reconcile run.
type ReconcileReport struct {
	OwnerID id.ProfileID `json:"owner_id"`
	Meals   int          `json:"meals"`
	Dishes  int          `json:"dishes"`
	Tickets int          `json:"tickets"`
	Drifts  []Drift      `json:"drifts,omitempty"`
}

// OK reports a run with no drift.
func (r *ReconcileReport) OK() bool { return len(r.Drifts) == 0 }

// Err returns the drifts as a MultiError, or nil.
func (r *ReconcileReport) Err() error {
	if r.OK() {
		return nil
	}
	var errs MultiError
	for _, d := range r.Drifts {
		errs.Add(d)
	}
	return errs
}

// Reconcile recomputes every derived total of a profile from its tickets
// and compares it with what is stored. It never writes; drift is reported
// and left for an operator to inspect.
func (e *Engine) Reconcile(ctx context.Context, ownerID id.ProfileID) (*ReconcileReport, error) {
	owner, err := e.store.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(owner.ID)
	defer unlock()

	meals, err := e.store.ListMeals(ctx, owner.ID, meal.ListOpts{})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{OwnerID: owner.ID}
	ingredients := make(map[string]*ingredient.Ingredient)
	cur := owner.Currency

	for _, m := range meals {
		report.Meals++
		mealOpen, mealClosed := types.Zero(cur), types.Zero(cur)

		dishes, err := e.store.ListDishes(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range dishes {
			report.Dishes++
			mealOpen = mealOpen.Add(d.CostOpen)
			mealClosed = mealClosed.Add(d.CostClosed)

			tickets, err := e.store.ListTicketsByDish(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			open, closed := types.Zero(cur), types.Zero(cur)
			for _, t := range tickets {
				report.Tickets++
				key := t.IngredientID.String()
				ing, ok := ingredients[key]
				if !ok {
					ing, err = e.store.GetIngredient(ctx, t.IngredientID)
					if err != nil {
						return nil, err
					}
					ingredients[key] = ing
				}

				if t.Final != ing.Exhausted {
					report.Drifts = append(report.Drifts, Drift{
						Kind:     DriftTicketState,
						RecordID: t.ID.String(),
						Expected: t.Cost,
						Actual:   t.Cost,
					})
				}

				if t.Final {
					closed = closed.Add(t.Cost)
					continue
				}
				open = open.Add(t.Cost)
				if want := ing.CostPerUnit().Mul(t.Used).Round(); !want.Equal(t.Cost) {
					report.Drifts = append(report.Drifts, Drift{
						Kind:     DriftTicketCost,
						RecordID: t.ID.String(),
						Expected: want,
						Actual:   t.Cost,
					})
				}
			}

			if !open.Equal(d.CostOpen) {
				report.Drifts = append(report.Drifts, Drift{Kind: DriftDishOpen, RecordID: d.ID.String(), Expected: open, Actual: d.CostOpen})
			}
			if !closed.Equal(d.CostClosed) {
				report.Drifts = append(report.Drifts, Drift{Kind: DriftDishClosed, RecordID: d.ID.String(), Expected: closed, Actual: d.CostClosed})
			}
		}

		if !mealOpen.Equal(m.CostOpen) {
			report.Drifts = append(report.Drifts, Drift{Kind: DriftMealOpen, RecordID: m.ID.String(), Expected: mealOpen, Actual: m.CostOpen})
		}
		if !mealClosed.Equal(m.CostClosed) {
			report.Drifts = append(report.Drifts, Drift{Kind: DriftMealClosed, RecordID: m.ID.String(), Expected: mealClosed, Actual: m.CostClosed})
		}
	}

	if !report.OK() {
		e.logger.Warn("ledger drift detected",
			"owner_id", owner.ID.String(),
			"drifts", len(report.Drifts),
		)
		e.plugins.EmitDriftDetected(ctx, owner.ID, len(report.Drifts))
	} else {
		e.logger.Debug("ledger reconciled",
			"owner_id", owner.ID.String(),
			"meals", report.Meals,
			"tickets", report.Tickets,
		)
	}
	return report, nil
}
