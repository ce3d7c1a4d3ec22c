// Package grain is an embeddable food cost ledger.
//
// A household buys ingredients at a price and records, per dish, how much
// of each ingredient was consumed. Grain turns those records into money:
//
//   - An ingredient's cost per unit is its price divided by the quantity
//     consumed so far, so the full price is always spread over actual use.
//   - A ticket ties a consumed quantity of one ingredient to one dish. Its
//     cost is quantity times the ingredient's cost per unit, rounded to the
//     currency's minor unit.
//   - Dishes and meals keep their cost in two buckets. Open cost may still
//     shift as more of an ingredient is used; closed cost is final.
//   - Marking an ingredient exhausted makes every ticket on it final and
//     moves their cost into the closed buckets.
//
// Every write cascades through the graph in one transaction: a new ticket
// re-prices its sibling tickets, and the differences flow into their
// dishes and meals.
//
// # Quick Start
//
//	engine := grain.New(memory.New())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	home := &profile.Profile{UserRef: "alice", Currency: "GBP"}
//	_ = engine.CreateProfile(ctx, home)
//
//	rice, _ := engine.PurchaseIngredient(ctx, grain.Purchase{
//	    OwnerID:     home.ID,
//	    ProductName: "Basmati rice",
//	    Units:       "g",
//	    Price:       grain.GBP(300),
//	    Amount:      1000,
//	})
//
//	dinner := &meal.Meal{OwnerID: home.ID, Type: meal.TypeDinner}
//	_ = engine.CreateMeal(ctx, dinner)
//	pilaf := &dish.Dish{MealID: dinner.ID, Name: "Pilaf"}
//	_ = engine.CreateDish(ctx, pilaf)
//
//	_, err := engine.CreateTicket(ctx, grain.CreateTicketInput{
//	    IngredientID: rice.ID,
//	    DishID:       pilaf.ID,
//	    Quantity:     250,
//	})
//
// # Stores
//
// Grain ships an in-memory store for tests, a gorm-backed SQL store with
// PostgreSQL and SQLite openers, and a MongoDB store. All of them apply a
// ledger operation's writes atomically.
//
// # Plugins
//
// Plugins observe committed changes through hook interfaces in the plugin
// package. See audit_hook and observability for bundled plugins.
package grain
