// Package profile defines the owner scope every ingredient and meal belongs to.
package profile

import (
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/types"
)

// Profile groups a user's pantry and meals under one operating currency.
type Profile struct {
	types.Entity
	ID       id.ProfileID `json:"id"`
	UserRef  string       `json:"user_ref"`
	Note     string       `json:"note"`
	Currency string       `json:"currency"`
}
