/**
 * @description
 * Periodic sweeps. Both are optimistic: they only transition rows whose
 * preconditions still hold at sweep time, so running them concurrently with
 * live traffic (or with a second sweep) degrades to a no-op.
 */
package app

import (
	"context"
	"time"
)

const (
	eventRecordOverdue    = "billing.record.overdue"
	eventProofImagePurged = "proof.image.purged"
)

// OverdueSweepResult summarizes one overdue reconciliation run.
type OverdueSweepResult struct {
	MarkedOverdue int `json:"marked_overdue"`
}

// RetentionSweepResult summarizes one proof-image retention run.
type RetentionSweepResult struct {
	Purged int `json:"purged"`
	Failed int `json:"failed"`
}

// RunOverdueSweep persists the overdue status for pending records past
// their due date.
func (s Service) RunOverdueSweep(ctx context.Context) (*OverdueSweepResult, error) {
	records, err := s.repo.MarkOverdueRecords(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for i := range records {
		s.publishEvent(ctx, eventRecordOverdue, &records[i])
	}

	return &OverdueSweepResult{MarkedOverdue: len(records)}, nil
}

// RunProofRetentionSweep discards proof images a retention window after an
// approved review, keeping the proof's metadata for audit. A blob that
// fails to delete is retried on the next run because the reference is only
// cleared after a successful delete.
func (s Service) RunProofRetentionSweep(ctx context.Context) (*RetentionSweepResult, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	proofs, err := s.repo.ListPurgeableProofImages(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &RetentionSweepResult{}
	for _, proof := range proofs {
		if proof.ImageRef == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, *proof.ImageRef); err != nil {
			result.Failed++
			s.logger.Warn("failed to delete retained proof image", "proof_id", proof.ID, "error", err)
			continue
		}
		if err := s.repo.ClearProofImage(ctx, proof.ID); err != nil {
			result.Failed++
			s.logger.Warn("failed to clear proof image reference", "proof_id", proof.ID, "error", err)
			continue
		}
		result.Purged++
		s.publishEvent(ctx, eventProofImagePurged, map[string]interface{}{"proof_id": proof.ID})
	}

	if result.Purged > 0 || result.Failed > 0 {
		s.logger.Info("proof retention sweep finished", "purged", result.Purged, "failed", result.Failed)
	}
	return result, nil
}
