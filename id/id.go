// Package id defines TypeID-based identifiers for every Grain record.
//
// All records share one ID struct whose prefix names the record kind.
// IDs are K-sortable (UUIDv7-based), globally unique, and render as
// "prefix_suffix", e.g. "tkt_01h455vb4pex5vsknk084sn02q".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the record kind encoded in a TypeID.
type Prefix string

// Prefixes for all Grain record kinds.
const (
	PrefixProfile    Prefix = "prof" // Owner profile (currency scope)
	PrefixIngredient Prefix = "ingr" // Purchased stock unit
	PrefixTicket     Prefix = "tkt"  // Dish claim on an ingredient
	PrefixDish       Prefix = "dish" // Cooked dish
	PrefixMeal       Prefix = "meal" // Meal grouping dishes
	PrefixEvent      Prefix = "evt"  // Ledger event log entry
)

// ID is the identifier type for all Grain records.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "ingr_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and requires its prefix to equal expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for fixtures.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// Record-kind aliases. They document intent at call sites; the prefix is
// checked by the matching Parse function, not by the type system.
type (
	ProfileID    = ID
	IngredientID = ID
	TicketID     = ID
	DishID       = ID
	MealID       = ID
	EventID      = ID
)

func NewProfileID() ID    { return New(PrefixProfile) }
func NewIngredientID() ID { return New(PrefixIngredient) }
func NewTicketID() ID     { return New(PrefixTicket) }
func NewDishID() ID       { return New(PrefixDish) }
func NewMealID() ID       { return New(PrefixMeal) }
func NewEventID() ID      { return New(PrefixEvent) }

func ParseProfileID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixProfile) }
func ParseIngredientID(s string) (ID, error) { return ParseWithPrefix(s, PrefixIngredient) }
func ParseTicketID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixTicket) }
func ParseDishID(s string) (ID, error)       { return ParseWithPrefix(s, PrefixDish) }
func ParseMealID(s string) (ID, error)       { return ParseWithPrefix(s, PrefixMeal) }
func ParseEventID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixEvent) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of the ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // NULL for optional references
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
