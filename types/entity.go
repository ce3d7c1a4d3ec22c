package types

import "time"

// Entity carries creation and modification timestamps.
// Embed it in persisted records.
//
// Version counts committed updates. A record written back with Version n
// replaces the stored record only while the store still holds n-1.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// NewEntity stamps both fields with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch moves UpdatedAt to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
