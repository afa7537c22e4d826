package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProofType declares which companion payload a proof carries.
type ProofType string

const (
	ProofTypeScreenshot           ProofType = "screenshot"
	ProofTypeTransactionReference ProofType = "transaction_reference"
)

// ProofStatus is the review state of a payment proof.
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

// ReviewDecision is the reviewer's verdict on a pending proof.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
)

// PaymentProof is a payer's claim of having paid a billing record. The
// record link is nullable: a proof submitted without one is reconciled to a
// record by the reviewer at approval time. Rejected proofs are retained for
// audit and superseded by a fresh submission.
type PaymentProof struct {
	ID                   uuid.UUID       `json:"id"`
	BillingRecordID      *uuid.UUID      `json:"billing_record_id,omitempty"`
	PayerID              uuid.UUID       `json:"payer_id"`
	PayeeID              uuid.UUID       `json:"payee_id"`
	ProofType            ProofType       `json:"proof_type"`
	ImageRef             *string         `json:"image_ref,omitempty"`
	TransactionReference *string         `json:"transaction_reference,omitempty"`
	ClaimedAmount        decimal.Decimal `json:"claimed_amount"`
	ClaimedPaymentDate   time.Time       `json:"claimed_payment_date"`
	Notes                string          `json:"notes,omitempty"`
	Status               ProofStatus     `json:"status"`
	ReviewerID           *uuid.UUID      `json:"reviewer_id,omitempty"`
	ReviewerNotes        *string         `json:"reviewer_notes,omitempty"`
	ReviewedAt           *time.Time      `json:"reviewed_at,omitempty"`
	ResubmittedAt        *time.Time      `json:"resubmitted_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}
