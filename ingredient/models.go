// Package ingredient defines purchased stock units and their cost-per-unit rule.
package ingredient

import (
	"time"

	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// ExpiryType says how BestBefore should be read.
type ExpiryType string

const (
	ExpiryBestBefore ExpiryType = "BBF"
	ExpiryExpires    ExpiryType = "EXP"
)

// Ingredient is one purchase. Price is fixed at purchase; UsedAmount and
// Exhausted change only through the ledger engine.
type Ingredient struct {
	types.Entity
	ID           id.IngredientID `json:"id"`
	OwnerID      id.ProfileID    `json:"owner_id"`
	ProductName  string          `json:"product_name"`
	Units        string          `json:"units"`
	Price        types.Money     `json:"price"`
	TotalAmount  float64         `json:"total_amount"`
	UsedAmount   float64         `json:"used_amount"`
	Exhausted    bool            `json:"exhausted"`
	BestBefore   time.Time       `json:"best_before"`
	ExpiryType   ExpiryType      `json:"expiry_type"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

// CostPerUnit is Price divided by UsedAmount, or zero money when nothing
// has been consumed.
func (i *Ingredient) CostPerUnit() types.Money {
	if i.UsedAmount == 0 {
		return types.Zero(i.Price.Currency)
	}
	return i.Price.Div(i.UsedAmount)
}

// Remaining is TotalAmount minus UsedAmount. It goes negative when the
// ingredient has been over-consumed; nothing caps consumption.
func (i *Ingredient) Remaining() float64 {
	return types.AddQuantity(i.TotalAmount, -i.UsedAmount)
}

// Overdrawn reports more recorded use than was purchased.
func (i *Ingredient) Overdrawn() bool { return i.Remaining() < 0 }

// Expired reports whether an EXP ingredient is past its date at now.
// Best-before ingredients never expire.
func (i *Ingredient) Expired(now time.Time) bool {
	return i.ExpiryType == ExpiryExpires && !i.BestBefore.IsZero() && now.After(i.BestBefore)
}

// Clone returns a copy safe to mutate.
func (i *Ingredient) Clone() *Ingredient {
	c := *i
	return &c
}
