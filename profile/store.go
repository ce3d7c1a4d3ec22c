package profile

import (
	"context"

	"github.com/xraph/grain/id"
)

type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, profileID id.ProfileID) (*Profile, error)
	ListByUser(ctx context.Context, userRef string) ([]*Profile, error)
}
