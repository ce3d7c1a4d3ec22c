package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	audithook "github.com/xraph/grain/audit_hook"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store/memory"
	"github.com/xraph/grain/types"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, e *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

// run drives one purchase, one ticket, an exhaust and a delete.
func run(t *testing.T, ext *audithook.Extension) {
	t.Helper()
	ctx := context.Background()

	engine := grain.New(memory.New(), grain.WithPlugin(ext))
	if err := engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	owner := &profile.Profile{Currency: "GBP"}
	if err := engine.CreateProfile(ctx, owner); err != nil {
		t.Fatal(err)
	}
	m := &meal.Meal{OwnerID: owner.ID, Type: meal.TypeLunch}
	if err := engine.CreateMeal(ctx, m); err != nil {
		t.Fatal(err)
	}
	d := &dish.Dish{MealID: m.ID, Name: "Salad"}
	if err := engine.CreateDish(ctx, d); err != nil {
		t.Fatal(err)
	}
	ing, err := engine.PurchaseIngredient(ctx, grain.Purchase{OwnerID: owner.ID, ProductName: "Lettuce", Price: types.GBP(80), Amount: 1})
	if err != nil {
		t.Fatal(err)
	}
	tk, err := engine.CreateTicket(ctx, grain.CreateTicketInput{IngredientID: ing.ID, DishID: d.ID, Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.SetIngredientExhausted(ctx, ing.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := engine.DeleteTicket(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
}

func TestExtensionRecordsLedgerEvents(t *testing.T) {
	rec := &sink{}
	run(t, audithook.New(rec))

	want := []string{
		audithook.ActionIngredientPurchased,
		audithook.ActionTicketCreated,
		audithook.ActionIngredientExhausted,
		audithook.ActionTicketDeleted,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	exhausted := rec.events[2]
	if exhausted.Metadata["finalized_tickets"] != 1 {
		t.Errorf("finalized_tickets = %v, want 1", exhausted.Metadata["finalized_tickets"])
	}
	if exhausted.Resource != audithook.ResourceIngredient || exhausted.ResourceID == "" {
		t.Errorf("exhausted event resource = %s %q", exhausted.Resource, exhausted.ResourceID)
	}
}

func TestActionFilters(t *testing.T) {
	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"enabled only", []audithook.Option{audithook.WithEnabledActions(audithook.ActionTicketCreated)}, 1},
		{"disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionTicketCreated, audithook.ActionTicketDeleted)}, 2},
		{"none filtered", nil, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sink{}
			run(t, audithook.New(rec, tt.opts...))
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestDriftIsCritical(t *testing.T) {
	rec := &sink{}
	ext := audithook.New(rec)
	if err := ext.OnDriftDetected(context.Background(), id.NewProfileID(), 3); err != nil {
		t.Fatal(err)
	}
	e := rec.events[0]
	if e.Severity != audithook.SeverityCritical || e.Outcome != audithook.OutcomeFailure || e.Reason == "" {
		t.Errorf("drift event = %+v", e)
	}
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	if err := audithook.New(failing).OnDriftDetected(context.Background(), id.NewProfileID(), 1); err != nil {
		t.Errorf("error = %v, want nil", err)
	}
}
