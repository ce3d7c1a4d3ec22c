package ingredient

import (
	"context"

	"github.com/xraph/grain/id"
)

type Store interface {
	Create(ctx context.Context, ing *Ingredient) error
	Get(ctx context.Context, ingredientID id.IngredientID) (*Ingredient, error)
	List(ctx context.Context, ownerID id.ProfileID, opts ListOpts) ([]*Ingredient, error)
}

// ListOpts filters ingredient listings. With OnlyAvailable the result holds
// non-exhausted ingredients ordered by UsedAmount descending, the order a
// ticket picker offers them in.
type ListOpts struct {
	OnlyAvailable bool
	Limit         int
	Offset        int
}
