package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentQR is a payee's payment-receiving artifact. An active artifact
// cannot be deleted; it must be deactivated first. Activating one artifact
// deactivates the owner's others, so payers always see a single target.
type PaymentQR struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ImageRef    string    `json:"image_ref"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
