package event

import (
	"context"
	"time"

	"github.com/xraph/grain/id"
)

type Store interface {
	List(ctx context.Context, ownerID id.ProfileID, opts QueryOpts) ([]*Event, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// QueryOpts filters the event log. Results are newest first.
type QueryOpts struct {
	Action Action
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
