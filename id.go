package grain

import "github.com/xraph/grain/id"

// ID is the primary identifier type for all Grain records.
type ID = id.ID

// Prefix identifies the record kind encoded in a TypeID.
type Prefix = id.Prefix
