package dish

import (
	"context"

	"github.com/xraph/grain/id"
)

type Store interface {
	Create(ctx context.Context, d *Dish) error
	Get(ctx context.Context, dishID id.DishID) (*Dish, error)
	// ListByMeal orders by CostClosed desc, CostOpen desc, then creation.
	ListByMeal(ctx context.Context, mealID id.MealID) ([]*Dish, error)
}
