package grain

import (
	"sync"

	"github.com/xraph/grain/id"
)

// scopeLocks serializes ledger writes per owning profile. Every record a
// cascade can touch (ingredient, sibling tickets, dishes, meals) belongs to
// one profile, so two writes under different profiles never share state.
type scopeLocks struct {
	mu    sync.Mutex
	slots map[string]*scopeSlot
}

type scopeSlot struct {
	mu   sync.Mutex
	refs int
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{slots: make(map[string]*scopeSlot)}
}

// lock blocks until the owner's scope is free and returns the release func.
func (l *scopeLocks) lock(owner id.ProfileID) func() {
	key := owner.String()

	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &scopeSlot{}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	slot.mu.Lock()

	return func() {
		slot.mu.Unlock()

		l.mu.Lock()
		slot.refs--
		if slot.refs == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
	}
}
