/**
 * @description
 * Proof submission and review workflow. A proof claims a payment against a
 * billing record; the payee's review drives the record's state machine.
 * Approval and the pending -> paid transition are one atomic unit: a proof
 * is never left approved with no record effect.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repotrack/billing-service/internal/domain"
	"github.com/repotrack/billing-service/internal/store"
)

const (
	eventProofSubmitted = "proof.submitted"
	eventProofApproved  = "proof.approved"
	eventProofRejected  = "proof.rejected"
)

// SubmitProofInput carries a payer's payment claim.
type SubmitProofInput struct {
	PayerID              uuid.UUID
	PayeeID              uuid.UUID
	BillingRecordID      *uuid.UUID
	ProofType            domain.ProofType
	Image                []byte
	TransactionReference string
	ClaimedAmount        decimal.Decimal
	ClaimedPaymentDate   time.Time
	Notes                string
}

// SubmitProof validates and records a payment claim. The payload must match
// the declared proof type: an image for screenshots, a reference string for
// transaction references, never both.
func (s Service) SubmitProof(ctx context.Context, in SubmitProofInput) (*domain.PaymentProof, error) {
	if in.PayerID == uuid.Nil || in.PayeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: payer and payee are required", domain.ErrValidation)
	}
	if !in.ClaimedAmount.IsPositive() {
		return nil, fmt.Errorf("%w: claimed amount must be positive", domain.ErrValidation)
	}

	switch in.ProofType {
	case domain.ProofTypeScreenshot:
		if len(in.Image) == 0 {
			return nil, fmt.Errorf("%w: screenshot proof requires an image", domain.ErrValidation)
		}
		if in.TransactionReference != "" {
			return nil, fmt.Errorf("%w: screenshot proof must not carry a transaction reference", domain.ErrValidation)
		}
	case domain.ProofTypeTransactionReference:
		if in.TransactionReference == "" {
			return nil, fmt.Errorf("%w: transaction-reference proof requires a reference", domain.ErrValidation)
		}
		if len(in.Image) != 0 {
			return nil, fmt.Errorf("%w: transaction-reference proof must not carry an image", domain.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown proof type %q", domain.ErrValidation, in.ProofType)
	}

	now := time.Now().UTC()
	proof := &domain.PaymentProof{
		ID:                 uuid.New(),
		BillingRecordID:    in.BillingRecordID,
		PayerID:            in.PayerID,
		PayeeID:            in.PayeeID,
		ProofType:          in.ProofType,
		ClaimedAmount:      in.ClaimedAmount.Round(2),
		ClaimedPaymentDate: in.ClaimedPaymentDate,
		Notes:              in.Notes,
		Status:             domain.ProofStatusPending,
		CreatedAt:          now,
	}

	if in.BillingRecordID != nil {
		rec, err := s.repo.GetBillingRecordByID(ctx, *in.BillingRecordID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: billing record %s", domain.ErrNotFound, *in.BillingRecordID)
			}
			return nil, err
		}
		if rec.PayerID != in.PayerID {
			return nil, fmt.Errorf("%w: billing record belongs to another payer", domain.ErrValidation)
		}
		if rec.Status == domain.RecordStatusPaid {
			return nil, fmt.Errorf("%w: billing record is already paid", domain.ErrPreconditionFailed)
		}

		resubmitting, err := s.repo.HasRejectedProofForRecord(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if resubmitting {
			proof.ResubmittedAt = &now
		}
	}

	if in.ProofType == domain.ProofTypeScreenshot {
		ref, err := s.blobs.Save(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store proof image: %w", err)
		}
		proof.ImageRef = &ref
	} else {
		txRef := in.TransactionReference
		proof.TransactionReference = &txRef
	}

	if err := s.repo.CreateProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to create proof: %w", err)
	}

	s.publishEvent(ctx, eventProofSubmitted, proof)
	return proof, nil
}

// ReviewProof adjudicates a pending proof. Approval reconciles an unlinked
// proof to recordID when given, then commits the approval together with the
// record's pending -> paid transition; if the record is missing or not
// pending the whole review fails and the proof stays pending. Rejection
// marks the proof only and permits resubmission.
func (s Service) ReviewProof(ctx context.Context, proofID, reviewerID uuid.UUID, decision domain.ReviewDecision, reviewerNotes string, recordID *uuid.UUID) (*domain.PaymentProof, error) {
	proof, err := s.repo.GetProofByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, store.ErrProofNotFound) {
			return nil, fmt.Errorf("%w: proof %s", domain.ErrNotFound, proofID)
		}
		return nil, err
	}
	if proof.Status != domain.ProofStatusPending {
		return nil, fmt.Errorf("%w: proof already reviewed as %s", domain.ErrPreconditionFailed, proof.Status)
	}

	now := time.Now().UTC()

	switch decision {
	case domain.DecisionRejected:
		if err := s.repo.RejectProof(ctx, proofID, reviewerID, reviewerNotes, now); err != nil {
			return nil, mapProofReviewErr(err, proofID)
		}

	case domain.DecisionApproved:
		target := proof.BillingRecordID
		if target == nil {
			target = recordID
		}
		if target == nil {
			return nil, fmt.Errorf("%w: proof is not linked to a billing record and no record was supplied", domain.ErrValidation)
		}

		rec, err := s.repo.ApproveProofAndMarkRecordPaid(ctx, proofID, *target, reviewerID, reviewerNotes, now)
		if err != nil {
			return nil, mapProofReviewErr(err, proofID)
		}
		s.publishEvent(ctx, eventProofApproved, rec)

	default:
		return nil, fmt.Errorf("%w: unknown review decision %q", domain.ErrValidation, decision)
	}

	reviewed, err := s.repo.GetProofByID(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if decision == domain.DecisionRejected {
		s.publishEvent(ctx, eventProofRejected, reviewed)
	}
	return reviewed, nil
}

// ListProofs returns the payee's review queue, optionally filtered by
// status.
func (s Service) ListProofs(ctx context.Context, payeeID uuid.UUID, status *domain.ProofStatus) ([]domain.PaymentProof, error) {
	return s.repo.ListProofsByPayee(ctx, payeeID, status)
}

func mapProofReviewErr(err error, proofID uuid.UUID) error {
	switch {
	case errors.Is(err, store.ErrProofNotFound):
		return fmt.Errorf("%w: proof %s", domain.ErrNotFound, proofID)
	case errors.Is(err, store.ErrRecordNotFound):
		return fmt.Errorf("%w: billing record for proof %s", domain.ErrNotFound, proofID)
	case errors.Is(err, store.ErrProofNotPending):
		return fmt.Errorf("%w: proof already reviewed", domain.ErrPreconditionFailed)
	case errors.Is(err, store.ErrRecordNotPayable):
		return fmt.Errorf("%w: billing record is not awaiting payment", domain.ErrPreconditionFailed)
	default:
		return err
	}
}
