package grain

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

// readStore serves the records a cascade reads; anything else panics on
// the nil embedded Store.
type readStore struct {
	store.Store
	ing     *ingredient.Ingredient
	tickets []*ticket.Ticket
	dish    *dish.Dish
	meal    *meal.Meal
}

func (s *readStore) GetIngredient(context.Context, id.IngredientID) (*ingredient.Ingredient, error) {
	return s.ing.Clone(), nil
}

func (s *readStore) GetTicket(_ context.Context, ticketID id.TicketID) (*ticket.Ticket, error) {
	for _, t := range s.tickets {
		if t.ID.String() == ticketID.String() {
			return t.Clone(), nil
		}
	}
	return nil, ErrTicketNotFound
}

func (s *readStore) ListTicketsByIngredient(context.Context, id.IngredientID) ([]*ticket.Ticket, error) {
	out := make([]*ticket.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *readStore) GetDish(context.Context, id.DishID) (*dish.Dish, error) {
	return s.dish.Clone(), nil
}

func (s *readStore) GetMeal(context.Context, id.MealID) (*meal.Meal, error) {
	return s.meal.Clone(), nil
}

func newReadStore() *readStore {
	m := &meal.Meal{ID: id.NewMealID(), CostOpen: types.Zero("GBP"), CostClosed: types.Zero("GBP")}
	d := &dish.Dish{ID: id.NewDishID(), MealID: m.ID, CostOpen: types.Zero("GBP"), CostClosed: types.Zero("GBP")}
	ing := &ingredient.Ingredient{ID: id.NewIngredientID(), Price: types.GBP(300), TotalAmount: 10}
	t := &ticket.Ticket{ID: id.NewTicketID(), IngredientID: ing.ID, DishID: d.ID, Cost: types.Zero("GBP")}
	return &readStore{ing: ing, tickets: []*ticket.Ticket{t}, dish: d, meal: m}
}

func TestUpdateUsageReturnsCostPerUnit(t *testing.T) {
	s := newReadStore()
	u := newUnitOfWork(context.Background(), s, time.Now())

	tk, err := u.ticket(s.tickets[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		delta float64
		want  types.Money
	}{
		{"first use", 4, types.MustParse("0.75", "GBP")},
		{"more use", 2, types.MustParse("0.5", "GBP")},
		{"back to nothing", -6, types.Zero("GBP")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, err := u.updateTicketUsage(tk, tt.delta)
			if err != nil {
				t.Fatalf("updateTicketUsage: %v", err)
			}
			if !cpu.Equal(tt.want) {
				t.Errorf("cost per unit = %s, want %s", cpu, tt.want)
			}
			ing, _ := u.ingredient(tk.IngredientID) //nolint:errcheck // cached
			if !cpu.Equal(ing.CostPerUnit()) {
				t.Errorf("returned %s, ingredient reports %s", cpu, ing.CostPerUnit())
			}
		})
	}
}

func TestUpdateUsageOnExhaustedIngredient(t *testing.T) {
	s := newReadStore()
	s.ing.Exhausted = true
	u := newUnitOfWork(context.Background(), s, time.Now())

	ing, err := u.ingredient(s.ing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.updateIngredientUsage(ing, 1); !IsContractViolation(err) {
		t.Fatalf("error = %v, want contract violation", err)
	}
	if ing.UsedAmount != 0 {
		t.Errorf("UsedAmount = %v, want 0", ing.UsedAmount)
	}
}
