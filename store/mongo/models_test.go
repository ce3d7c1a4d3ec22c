package mongo

import (
	"testing"
	"time"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

func TestDishModelKeepsExactAmounts(t *testing.T) {
	d := &dish.Dish{
		Entity:     types.Entity{Version: 3},
		ID:         id.NewDishID(),
		MealID:     id.NewMealID(),
		Name:       "Soup",
		Method:     dish.StyleBoiled,
		CostOpen:   types.MustParse("0.3333333333333333", "GBP"),
		CostClosed: types.GBP(1999),
	}

	m, err := toDishModel(d)
	if err != nil {
		t.Fatalf("toDishModel: %v", err)
	}
	got, err := fromDishModel(m)
	if err != nil {
		t.Fatalf("fromDishModel: %v", err)
	}
	if !got.CostOpen.Equal(d.CostOpen) || !got.CostClosed.Equal(d.CostClosed) {
		t.Errorf("costs = %s / %s, want %s / %s", got.CostOpen, got.CostClosed, d.CostOpen, d.CostClosed)
	}
	if got.ID.String() != d.ID.String() || got.MealID.String() != d.MealID.String() {
		t.Error("identifiers changed")
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}
}

func TestTimeRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	if got := timeRange(time.Time{}, time.Time{}); got != nil {
		t.Errorf("open range = %v, want nil", got)
	}
	got := timeRange(from, to)
	if got["$gte"] != from || got["$lt"] != to {
		t.Errorf("range = %v", got)
	}
	if _, ok := timeRange(from, time.Time{})["$lt"]; ok {
		t.Error("zero upper bound should be open")
	}
}

func TestMigrationIndexesCoverEveryCollection(t *testing.T) {
	indexes := migrationIndexes()
	for _, col := range []string{colProfiles, colIngredients, colTickets, colDishes, colMeals, colEvents} {
		if len(indexes[col]) == 0 {
			t.Errorf("no indexes for %s", col)
		}
	}
}
