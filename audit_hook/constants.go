package audithook

// Action constants for audit events.
const (
	// Ingredient actions
	ActionIngredientPurchased = "ingredient.purchased"
	ActionIngredientExhausted = "ingredient.exhausted"
	ActionIngredientRestored  = "ingredient.restored"

	// Ticket actions
	ActionTicketCreated = "ticket.created"
	ActionTicketDeleted = "ticket.deleted"

	// Reconciliation actions
	ActionDriftDetected = "ledger.drift_detected"
)

// Resource constants for audit events.
const (
	ResourceIngredient = "ingredient"
	ResourceTicket     = "ticket"
	ResourceProfile    = "profile"
)

// Category constants for audit events.
const (
	CategoryPantry      = "pantry"
	CategoryConsumption = "consumption"
	CategoryIntegrity   = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
