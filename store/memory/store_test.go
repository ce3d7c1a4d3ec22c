package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/grain"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/store"
	"github.com/xraph/grain/types"
)

func seedProfile(t *testing.T, s *Store) *profile.Profile {
	t.Helper()
	p := &profile.Profile{ID: id.NewProfileID(), Currency: "GBP"}
	if err := s.CreateProfile(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func newIngredient(owner id.ProfileID, name string, used float64) *ingredient.Ingredient {
	return &ingredient.Ingredient{
		ID:          id.NewIngredientID(),
		OwnerID:     owner,
		ProductName: name,
		Price:       types.GBP(100),
		TotalAmount: 10,
		UsedAmount:  used,
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProfile(t, s)
	ing := newIngredient(p.ID, "Flour", 0)

	err := s.Commit(ctx, &store.ChangeSet{
		CreatedIngredients: []*ingredient.Ingredient{ing},
		DeletedTickets:     []id.TicketID{id.NewTicketID()},
	})
	if !errors.Is(err, grain.ErrTicketNotFound) {
		t.Fatalf("Commit err = %v, want ErrTicketNotFound", err)
	}
	if _, err := s.GetIngredient(ctx, ing.ID); !errors.Is(err, grain.ErrIngredientNotFound) {
		t.Errorf("ingredient written by failed commit: err = %v", err)
	}
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProfile(t, s)
	ing := newIngredient(p.ID, "Milk", 1)

	if err := s.Commit(ctx, &store.ChangeSet{CreatedIngredients: []*ingredient.Ingredient{ing}}); err != nil {
		t.Fatal(err)
	}
	ing.UsedAmount = 9

	got, err := s.GetIngredient(ctx, ing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.UsedAmount != 1 {
		t.Errorf("UsedAmount = %v, want 1", got.UsedAmount)
	}
	got.UsedAmount = 5

	again, _ := s.GetIngredient(ctx, ing.ID) //nolint:errcheck // fetched above
	if again.UsedAmount != 1 {
		t.Errorf("store shares state with caller: UsedAmount = %v", again.UsedAmount)
	}
}

func TestListIngredientsAvailableOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProfile(t, s)

	light := newIngredient(p.ID, "Salt", 1)
	heavy := newIngredient(p.ID, "Rice", 7)
	gone := newIngredient(p.ID, "Butter", 3)
	gone.Exhausted = true
	other := newIngredient(seedProfile(t, s).ID, "Oats", 9)

	cs := &store.ChangeSet{CreatedIngredients: []*ingredient.Ingredient{light, heavy, gone, other}}
	if err := s.Commit(ctx, cs); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts ingredient.ListOpts
		want []string
	}{
		{"all in purchase order", ingredient.ListOpts{}, []string{"Salt", "Rice", "Butter"}},
		{"available by usage", ingredient.ListOpts{OnlyAvailable: true}, []string{"Rice", "Salt"}},
		{"limit", ingredient.ListOpts{Limit: 1}, []string{"Salt"}},
		{"offset past end", ingredient.ListOpts{Offset: 10}, nil},
		{"negative offset", ingredient.ListOpts{Offset: -3, Limit: 2}, []string{"Salt", "Rice"}},
		{"negative limit", ingredient.ListOpts{Offset: 1, Limit: -1}, []string{"Rice", "Butter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListIngredients(ctx, p.ID, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d ingredients, want %d", len(got), len(tt.want))
			}
			for i, ing := range got {
				if ing.ProductName != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, ing.ProductName, tt.want[i])
				}
			}
		})
	}
}

func TestCommitRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProfile(t, s)
	ing := newIngredient(p.ID, "Sugar", 0)
	if err := s.Commit(ctx, &store.ChangeSet{CreatedIngredients: []*ingredient.Ingredient{ing}}); err != nil {
		t.Fatal(err)
	}

	first, _ := s.GetIngredient(ctx, ing.ID)  //nolint:errcheck // committed above
	second, _ := s.GetIngredient(ctx, ing.ID) //nolint:errcheck // committed above

	first.UsedAmount = 2
	first.Version++
	if err := s.Commit(ctx, &store.ChangeSet{Ingredients: []*ingredient.Ingredient{first}}); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	second.UsedAmount = 5
	second.Version++
	err := s.Commit(ctx, &store.ChangeSet{Ingredients: []*ingredient.Ingredient{second}})
	if !errors.Is(err, grain.ErrConcurrentUpdate) {
		t.Fatalf("second writer error = %v, want ErrConcurrentUpdate", err)
	}

	got, _ := s.GetIngredient(ctx, ing.ID) //nolint:errcheck // committed above
	if got.UsedAmount != 2 || got.Version != 1 {
		t.Errorf("ingredient used=%v v%d, want 2 v1", got.UsedAmount, got.Version)
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, grain.ErrStoreClosed) {
		t.Errorf("Ping err = %v, want ErrStoreClosed", err)
	}
	if err := s.Commit(context.Background(), &store.ChangeSet{}); !errors.Is(err, grain.ErrStoreClosed) {
		t.Errorf("Commit err = %v, want ErrStoreClosed", err)
	}
}
