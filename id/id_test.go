package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/grain/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ProfileID", id.NewProfileID, "prof_"},
		{"IngredientID", id.NewIngredientID, "ingr_"},
		{"TicketID", id.NewTicketID, "tkt_"},
		{"DishID", id.NewDishID, "dish_"},
		{"MealID", id.NewMealID, "meal_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ProfileID", id.NewProfileID, id.ParseProfileID},
		{"IngredientID", id.NewIngredientID, id.ParseIngredientID},
		{"TicketID", id.NewTicketID, id.ParseTicketID},
		{"DishID", id.NewDishID, id.ParseDishID},
		{"MealID", id.NewMealID, id.ParseMealID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossKindRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTicketID rejects ingr_", id.NewIngredientID().String(), id.ParseTicketID},
		{"ParseIngredientID rejects dish_", id.NewDishID().String(), id.ParseIngredientID},
		{"ParseDishID rejects meal_", id.NewMealID().String(), id.ParseDishID},
		{"ParseMealID rejects prof_", id.NewProfileID().String(), id.ParseMealID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-kind parse of %q", tt.input)
			}
		})
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("nil ID rendered as %q/%q", i.String(), i.Prefix())
	}
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewTicketID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned, original)
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil || val != nil {
		t.Fatalf("Value(nil) = %v, %v", val, err)
	}
	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil || !scanned2.IsNil() {
		t.Fatalf("Scan(nil) = %v, nil=%v", err, scanned2.IsNil())
	}
	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestMarshalText(t *testing.T) {
	original := id.NewMealID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored, original)
	}
}
