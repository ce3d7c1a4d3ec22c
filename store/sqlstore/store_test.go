package sqlstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/store/sqlite"
	"github.com/xraph/grain/store/sqlstore"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := sqlite.Open(sqlite.MemoryDSN(name), sqlstore.PoolConfig{})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := sqlite.Open("  ", sqlstore.PoolConfig{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNotFoundSentinels(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"profile", func() error { _, err := s.GetProfile(ctx, id.NewProfileID()); return err }, grain.ErrProfileNotFound},
		{"ingredient", func() error { _, err := s.GetIngredient(ctx, id.NewIngredientID()); return err }, grain.ErrIngredientNotFound},
		{"ticket", func() error { _, err := s.GetTicket(ctx, id.NewTicketID()); return err }, grain.ErrTicketNotFound},
		{"dish", func() error { _, err := s.GetDish(ctx, id.NewDishID()); return err }, grain.ErrDishNotFound},
		{"meal", func() error { _, err := s.GetMeal(ctx, id.NewMealID()); return err }, grain.ErrMealNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestLedgerOnSQLite drives the engine end to end against SQLite.
func TestLedgerOnSQLite(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	engine := grain.New(s)

	owner := &profile.Profile{UserRef: "kitchen", Currency: "GBP"}
	if err := engine.CreateProfile(ctx, owner); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	m := &meal.Meal{OwnerID: owner.ID, Type: meal.TypeDinner, Time: time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)}
	if err := engine.CreateMeal(ctx, m); err != nil {
		t.Fatalf("CreateMeal: %v", err)
	}
	d := &dish.Dish{MealID: m.ID, Name: "Risotto", Method: dish.StyleBoiled}
	if err := engine.CreateDish(ctx, d); err != nil {
		t.Fatalf("CreateDish: %v", err)
	}
	rice, err := engine.PurchaseIngredient(ctx, grain.Purchase{OwnerID: owner.ID, ProductName: "Arborio", Price: types.GBP(1000), Amount: 1000})
	if err != nil {
		t.Fatalf("PurchaseIngredient: %v", err)
	}

	first, err := engine.CreateTicket(ctx, grain.CreateTicketInput{IngredientID: rice.ID, DishID: d.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	second, err := engine.CreateTicket(ctx, grain.CreateTicketInput{IngredientID: rice.ID, DishID: d.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if err := engine.SetIngredientExhausted(ctx, rice.ID, true); err != nil {
		t.Fatalf("SetIngredientExhausted: %v", err)
	}
	if err := engine.DeleteTicket(ctx, first.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}

	ing, err := s.GetIngredient(ctx, rice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ing.UsedAmount != 2 || !ing.Exhausted {
		t.Errorf("ingredient used=%v exhausted=%v, want 2 true", ing.UsedAmount, ing.Exhausted)
	}
	rest, err := s.GetTicket(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !rest.Final || !rest.Cost.Equal(types.GBP(1000)) {
		t.Errorf("remaining ticket final=%v cost=%s, want true 10.00", rest.Final, rest.Cost)
	}
	got, err := s.GetDish(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CostOpen.IsZero() || !got.CostClosed.Equal(types.GBP(1000)) {
		t.Errorf("dish open=%s closed=%s, want 0 and 10.00", got.CostOpen, got.CostClosed)
	}

	report, err := engine.Reconcile(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !report.OK() {
		t.Errorf("drift: %v", report.Err())
	}

	events, err := s.ListEvents(ctx, owner.ID, event.QueryOpts{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	// purchase, two creates, exhaust, delete
	if len(events) != 5 {
		t.Errorf("events = %d, want 5", len(events))
	}
}

func TestCommitRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	engine := grain.New(s)

	owner := &profile.Profile{Currency: "GBP"}
	if err := engine.CreateProfile(ctx, owner); err != nil {
		t.Fatal(err)
	}
	m := &meal.Meal{OwnerID: owner.ID, Type: meal.TypeLunch}
	if err := engine.CreateMeal(ctx, m); err != nil {
		t.Fatal(err)
	}
	d := &dish.Dish{MealID: m.ID, Name: "Soup"}
	if err := engine.CreateDish(ctx, d); err != nil {
		t.Fatal(err)
	}

	first, err := s.GetDish(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.GetDish(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}

	first.Name = "Leek soup"
	first.Version++
	if err := s.Commit(ctx, &store.ChangeSet{Dishes: []*dish.Dish{first}}); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	leek := &ingredient.Ingredient{
		Entity:  types.Entity{CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
		ID:      id.NewIngredientID(),
		OwnerID: owner.ID,
		Price:   types.GBP(90),
	}
	second.Name = "Tomato soup"
	second.Version++
	err = s.Commit(ctx, &store.ChangeSet{
		CreatedIngredients: []*ingredient.Ingredient{leek},
		Dishes:             []*dish.Dish{second},
	})
	if !errors.Is(err, grain.ErrConcurrentUpdate) {
		t.Fatalf("second writer error = %v, want ErrConcurrentUpdate", err)
	}
	if !grain.IsRetryable(err) {
		t.Error("stale write should be retryable")
	}

	got, err := s.GetDish(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Leek soup" || got.Version != 1 {
		t.Errorf("dish = %q v%d, want \"Leek soup\" v1", got.Name, got.Version)
	}
	if _, err := s.GetIngredient(ctx, leek.ID); !errors.Is(err, grain.ErrIngredientNotFound) {
		t.Errorf("rejected commit wrote its ingredient: err = %v", err)
	}
}

func TestCommitRollsBackOnMissingRow(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := &profile.Profile{Entity: types.Entity{CreatedAt: now, UpdatedAt: now}, ID: id.NewProfileID(), Currency: "GBP"}
	if err := s.CreateProfile(ctx, owner); err != nil {
		t.Fatal(err)
	}
	ing := &ingredient.Ingredient{
		Entity:  types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:      id.NewIngredientID(),
		OwnerID: owner.ID,
		Price:   types.GBP(500),
	}
	orphan := &ticket.Ticket{
		Entity:       types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:           id.NewTicketID(),
		IngredientID: ing.ID,
		DishID:       id.NewDishID(),
		Cost:         types.Zero("GBP"),
	}

	err := s.Commit(ctx, &store.ChangeSet{
		CreatedIngredients: []*ingredient.Ingredient{ing},
		Tickets:            []*ticket.Ticket{orphan},
	})
	if !errors.Is(err, grain.ErrTicketNotFound) {
		t.Fatalf("Commit error = %v, want ErrTicketNotFound", err)
	}
	if _, err := s.GetIngredient(ctx, ing.ID); !errors.Is(err, grain.ErrIngredientNotFound) {
		t.Errorf("ingredient survived rollback: err = %v", err)
	}
}

func TestListingsAndPurge(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	owner := &profile.Profile{Entity: types.Entity{CreatedAt: base, UpdatedAt: base}, ID: id.NewProfileID(), UserRef: "u1", Currency: "EUR"}
	if err := s.CreateProfile(ctx, owner); err != nil {
		t.Fatal(err)
	}

	m := &meal.Meal{
		Entity:     types.Entity{CreatedAt: base, UpdatedAt: base},
		ID:         id.NewMealID(),
		OwnerID:    owner.ID,
		Time:       base,
		Type:       meal.TypeLunch,
		CostOpen:   types.Zero("EUR"),
		CostClosed: types.Zero("EUR"),
	}
	if err := s.CreateMeal(ctx, m); err != nil {
		t.Fatal(err)
	}

	cheap := &dish.Dish{Entity: types.Entity{CreatedAt: base, UpdatedAt: base}, ID: id.NewDishID(), MealID: m.ID, Name: "cheap", CostOpen: types.EUR(900), CostClosed: types.EUR(100)}
	dear := &dish.Dish{Entity: types.Entity{CreatedAt: base.Add(time.Second), UpdatedAt: base}, ID: id.NewDishID(), MealID: m.ID, Name: "dear", CostOpen: types.Zero("EUR"), CostClosed: types.EUR(250)}
	for _, d := range []*dish.Dish{cheap, dear} {
		if err := s.CreateDish(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	dishes, err := s.ListDishes(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListDishes: %v", err)
	}
	if len(dishes) != 2 || dishes[0].Name != "dear" {
		t.Errorf("dishes not ordered by closed cost: %v", dishes)
	}
	if !dishes[1].CostOpen.Equal(types.EUR(900)) {
		t.Errorf("cost round trip = %s, want 9.00 EUR", dishes[1].CostOpen)
	}

	events := []*event.Event{
		{ID: id.NewEventID(), OwnerID: owner.ID, Action: event.ActionIngredientPurchased, Amount: types.EUR(100), Timestamp: base.Add(-48 * time.Hour)},
		{ID: id.NewEventID(), OwnerID: owner.ID, Action: event.ActionTicketCreated, Amount: types.EUR(10), Timestamp: base},
	}
	if err := s.Commit(ctx, &store.ChangeSet{Events: events}); err != nil {
		t.Fatalf("Commit events: %v", err)
	}

	n, err := s.PurgeEvents(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	left, err := s.ListEvents(ctx, owner.ID, event.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Action != event.ActionTicketCreated {
		t.Errorf("remaining events = %v", left)
	}

	profiles, err := s.ListProfiles(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].ID.String() != owner.ID.String() {
		t.Errorf("ListProfiles = %v", profiles)
	}
}
