package grain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/store/memory"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

func TestReconcileDetectsTamperedDish(t *testing.T) {
	hook := &recordingPlugin{}
	f := newFixture(t, grain.WithPlugin(hook))
	d := f.newDish(f.meal, "Cake")
	sugar := f.purchase(types.GBP(200), 1000)
	f.use(sugar, d, 100, false)

	tampered := f.dish(d.ID)
	tampered.CostOpen = tampered.CostOpen.Add(types.GBP(1))
	tampered.Version++
	if err := f.store.Commit(f.ctx, &store.ChangeSet{Dishes: []*dish.Dish{tampered}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	report, err := f.engine.Reconcile(f.ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.OK() {
		t.Fatal("expected drift")
	}
	kinds := map[grain.DriftKind]bool{}
	for _, d := range report.Drifts {
		kinds[d.Kind] = true
	}
	if !kinds[grain.DriftDishOpen] || !kinds[grain.DriftMealOpen] {
		t.Errorf("drift kinds = %v, want dish_open and meal_open", kinds)
	}
	if !errors.Is(report.Err(), grain.ErrDrift) {
		t.Errorf("report.Err() = %v, want ErrDrift", report.Err())
	}
	if report.Meals != 1 || report.Dishes != 1 || report.Tickets != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", report.Meals, report.Dishes, report.Tickets)
	}
	if hook.count("drift") != 1 {
		t.Errorf("drift hook fired %d times, want 1", hook.count("drift"))
	}
}

func TestReconcileDetectsStaleTicketCost(t *testing.T) {
	f := newFixture(t)
	d := f.newDish(f.meal, "Jam")
	fruit := f.purchase(types.GBP(400), 1000)
	tk := f.use(fruit, d, 500, false)

	stale := f.ticket(tk.ID)
	stale.Cost = types.GBP(100)
	stale.Version++
	if err := f.store.Commit(f.ctx, &store.ChangeSet{Tickets: []*ticket.Ticket{stale}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	report, err := f.engine.Reconcile(f.ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	var found bool
	for _, drift := range report.Drifts {
		if drift.Kind == grain.DriftTicketCost {
			found = true
			assertMoney(t, "expected", drift.Expected, "4")
			assertMoney(t, "actual", drift.Actual, "1")
		}
	}
	if !found {
		t.Errorf("no ticket_cost drift in %v", report.Drifts)
	}
}

func TestReconcileUnknownProfile(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Reconcile(f.ctx, id.NewProfileID()); !grain.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

// recordingPlugin counts the hooks it receives.
type recordingPlugin struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *recordingPlugin) Name() string { return "recorder" }

func (p *recordingPlugin) add(hook string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[hook]++
}

func (p *recordingPlugin) count(hook string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[hook]
}

func (p *recordingPlugin) OnInit(context.Context, any) error { p.add("init"); return nil }

func (p *recordingPlugin) OnIngredientPurchased(context.Context, *ingredient.Ingredient) error {
	p.add("purchased")
	return nil
}

func (p *recordingPlugin) OnIngredientExhausted(_ context.Context, _ *ingredient.Ingredient, finalized int) error {
	p.add("exhausted")
	return nil
}

func (p *recordingPlugin) OnIngredientRestored(context.Context, *ingredient.Ingredient, int) error {
	p.add("restored")
	return nil
}

func (p *recordingPlugin) OnTicketCreated(context.Context, *ticket.Ticket) error {
	p.add("created")
	return nil
}

func (p *recordingPlugin) OnTicketDeleted(context.Context, *ticket.Ticket) error {
	p.add("deleted")
	return errors.New("hook errors never reach the caller")
}

func (p *recordingPlugin) OnDriftDetected(context.Context, id.ProfileID, int) error {
	p.add("drift")
	return nil
}

func TestHooksFireAfterCommit(t *testing.T) {
	hook := &recordingPlugin{}
	fs := &failingStore{Store: memory.New()}
	f := newFixtureWithStore(t, fs, grain.WithPlugin(hook), grain.WithHookTimeout(time.Second))
	d := f.newDish(f.meal, "Chips")
	potato := f.purchase(types.GBP(150), 2000)
	tk := f.use(potato, d, 500, false)

	fs.fail = true
	if _, err := f.engine.CreateTicket(f.ctx, grain.CreateTicketInput{IngredientID: potato.ID, DishID: d.ID, Quantity: 1}); err == nil {
		t.Fatal("expected commit failure")
	}
	fs.fail = false

	if err := f.engine.SetIngredientExhausted(f.ctx, potato.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.SetIngredientExhausted(f.ctx, potato.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.DeleteTicket(f.ctx, tk.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}

	want := map[string]int{"init": 1, "purchased": 1, "created": 1, "exhausted": 1, "restored": 1, "deleted": 1}
	for hookName, n := range want {
		if got := hook.count(hookName); got != n {
			t.Errorf("%s fired %d times, want %d", hookName, got, n)
		}
	}
}

func TestSummarizeMeals(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	breakfast := f.newMeal(meal.TypeBreakfast, day.Add(8*time.Hour))
	dinner := f.newMeal(meal.TypeDinner, day.Add(19*time.Hour))
	lateSnack := f.newMeal(meal.TypeSnack, day.Add(22*time.Hour))
	nextLunch := f.newMeal(meal.TypeLunch, day.Add(36*time.Hour))

	oats := f.purchase(types.GBP(200), 1000)
	beans := f.purchase(types.GBP(100), 400)
	f.use(oats, f.newDish(breakfast, "Porridge"), 100, false)
	f.use(beans, f.newDish(dinner, "Chilli"), 200, false)
	f.use(beans, f.newDish(lateSnack, "Beans on toast"), 200, false)
	f.use(oats, f.newDish(nextLunch, "Flapjack"), 100, true)

	days, err := f.engine.SummarizeMeals(f.ctx, f.owner.ID, day, day.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("SummarizeMeals: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}

	first := days[0]
	if !first.Date.Equal(day) {
		t.Errorf("first day = %v, want %v", first.Date, day)
	}
	if len(first.Slots) != 3 || first.Slots[0].Type != meal.TypeBreakfast || first.Slots[2].Type != meal.TypeSnack {
		t.Errorf("first day slots = %+v", first.Slots)
	}
	// the flapjack exhausted the oats, closing breakfast's porridge too
	assertBuckets(t, "first day", first.Open, first.Closed, "1", "1")
	assertBuckets(t, "breakfast", first.Slots[0].Open, first.Slots[0].Closed, "0", "1")

	second := days[1]
	assertBuckets(t, "second day", second.Open, second.Closed, "0", "1")
	assertMoney(t, "second day total", second.Total(), "1")

	if _, err := f.engine.SummarizeMeals(f.ctx, f.owner.ID, day, day); !grain.IsValidation(err) {
		t.Errorf("empty range error = %v, want validation", err)
	}
}
