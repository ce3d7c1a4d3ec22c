package meal

import (
	"context"
	"time"

	"github.com/xraph/grain/id"
)

type Store interface {
	Create(ctx context.Context, m *Meal) error
	Get(ctx context.Context, mealID id.MealID) (*Meal, error)
	List(ctx context.Context, ownerID id.ProfileID, opts ListOpts) ([]*Meal, error)
}

// ListOpts bounds a meal listing by time, inclusive of From and exclusive
// of To. Zero bounds are open. Results are ordered by Time.
type ListOpts struct {
	From  time.Time
	To    time.Time
	Limit int
}
