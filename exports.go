package grain

import "github.com/xraph/grain/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	GBP       = types.GBP
	EUR       = types.EUR
	USD       = types.USD
	JPY       = types.JPY
	Zero      = types.Zero
	Sum       = types.Sum
	MustMoney = types.MustParse
)
