package observability_test

import (
	"context"
	"sync"
	"testing"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/observability"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store/memory"
	"github.com/xraph/grain/types"
)

type metric struct {
	mu     sync.Mutex
	total  float64
	values []float64
}

func (m *metric) Inc()              { m.Add(1) }
func (m *metric) Add(v float64)     { m.mu.Lock(); m.total += v; m.mu.Unlock() }
func (m *metric) Observe(v float64) { m.mu.Lock(); m.values = append(m.values, v); m.mu.Unlock() }

type factory struct {
	metrics map[string]*metric
}

func (f *factory) get(name string) *metric {
	if f.metrics == nil {
		f.metrics = make(map[string]*metric)
	}
	if m, ok := f.metrics[name]; ok {
		return m
	}
	m := &metric{}
	f.metrics[name] = m
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestMetricsFollowLedger(t *testing.T) {
	ctx := context.Background()
	f := &factory{}
	engine := grain.New(memory.New(), grain.WithPlugin(observability.NewMetricsExtension(f)))
	if err := engine.Start(ctx); err != nil {
		t.Fatal(err)
	}

	owner := &profile.Profile{Currency: "EUR"}
	if err := engine.CreateProfile(ctx, owner); err != nil {
		t.Fatal(err)
	}
	m := &meal.Meal{OwnerID: owner.ID, Type: meal.TypeBreakfast}
	if err := engine.CreateMeal(ctx, m); err != nil {
		t.Fatal(err)
	}
	d := &dish.Dish{MealID: m.ID, Name: "Eggs"}
	if err := engine.CreateDish(ctx, d); err != nil {
		t.Fatal(err)
	}
	eggs, err := engine.PurchaseIngredient(ctx, grain.Purchase{OwnerID: owner.ID, ProductName: "Eggs", Price: types.EUR(300), Amount: 6})
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := engine.CreateTicket(ctx, grain.CreateTicketInput{IngredientID: eggs.ID, DishID: d.ID, Quantity: 4}); err != nil {
			t.Fatal(err)
		}
	}
	if err := engine.SetIngredientExhausted(ctx, eggs.ID, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want float64
	}{
		{"grain.ingredient.purchased", 1},
		{"grain.ticket.created", 2},
		{"grain.ingredient.exhausted", 1},
		{"grain.ticket.finalized", 2},
		{"grain.ingredient.overdrawn", 1},
		{"grain.ticket.deleted", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.get(tt.name).total; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if got := f.get("grain.ingredient.price").values; len(got) != 1 || got[0] != 3 {
		t.Errorf("price observations = %v, want [3]", got)
	}
}
