package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subordinate is an account row as supplied by the user-lifecycle
// collaborator: enough to decide whether the account counts toward a
// period's headcount.
type Subordinate struct {
	ID        uuid.UUID
	CreatedAt time.Time
	DeletedAt *time.Time
}

// RecordFilter narrows a billing record listing.
type RecordFilter struct {
	PayerID *uuid.UUID
	Status  *RecordStatus
	Period  *Period
	Limit   int
	Offset  int
}
