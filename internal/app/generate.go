/**
 * @description
 * Billing record generation. One record per (payer, period); re-running a
 * generation skips payers whose record already exists, so the operation is
 * idempotent and safe to retry or to race.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
	"github.com/repotrack/billing-service/internal/store"
)

const eventRecordCreated = "billing.record.created"

// GenerationResult summarizes one generation run.
type GenerationResult struct {
	Period  string                 `json:"period"`
	Tier    domain.Tier            `json:"tier"`
	Created []domain.BillingRecord `json:"created"`
	Skipped []uuid.UUID            `json:"skipped"`
}

// Generate creates the period's billing records for every payer at the tier
// under payeeID. Without an active rate config the run aborts entirely; a
// partial rate is never used.
func (s Service) Generate(ctx context.Context, payeeID uuid.UUID, tier domain.Tier, period domain.Period, actor domain.Actor) (*GenerationResult, error) {
	if !tier.Billable() {
		return nil, fmt.Errorf("%w: tier %q is not billable", domain.ErrValidation, tier)
	}

	rate, err := s.GetActiveRate(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("rate not configured, generation aborted: %w", err)
	}

	subTier, ok := tier.SubordinateTier()
	if !ok {
		return nil, fmt.Errorf("%w: tier %q has no subordinate tier", domain.ErrValidation, tier)
	}

	payers, err := s.directory.ListSubordinates(ctx, payeeID, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to list payers: %w", err)
	}

	start := period.Start(s.loc)
	end := period.End(s.loc)
	now := time.Now().UTC()

	result := &GenerationResult{
		Period:  period.String(),
		Tier:    tier,
		Created: []domain.BillingRecord{},
		Skipped: []uuid.UUID{},
	}

	for _, payer := range payers {
		// A payer is billed for a period its account overlapped: created by
		// period end and not deleted before period start.
		if payer.CreatedAt.After(end) {
			continue
		}
		if payer.DeletedAt != nil && payer.DeletedAt.Before(start) {
			continue
		}

		hc, err := s.ResolveHeadcount(ctx, payer.ID, subTier, period)
		if err != nil {
			return nil, err
		}

		amounts := ComputeAmount(hc.Total, *rate, payer.CreatedAt, period, s.loc)

		rec := &domain.BillingRecord{
			ID:                    uuid.New(),
			PayerID:               payer.ID,
			PayeeID:               payeeID,
			Tier:                  tier,
			Period:                period,
			Headcount:             hc.Total,
			DeletedHeadcount:      hc.DeletedWithinPeriod,
			PerHeadRate:           rate.PerHeadRate,
			ServiceRate:           rate.ServiceRate,
			IsProrated:            amounts.IsProrated,
			ProratedDays:          amounts.ProratedDays,
			TotalDaysInPeriod:     amounts.TotalDaysInPeriod,
			ProratedServiceAmount: amounts.ProratedServiceAmount,
			HeadAmount:            amounts.HeadAmount,
			TotalAmount:           amounts.TotalAmount,
			DueDate:               end,
			Status:                domain.RecordStatusPending,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		if err := s.repo.CreateBillingRecord(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicateRecord) {
				result.Skipped = append(result.Skipped, payer.ID)
				continue
			}
			return nil, fmt.Errorf("failed to create billing record for payer %s: %w", payer.ID, err)
		}

		result.Created = append(result.Created, *rec)
		s.publishEvent(ctx, eventRecordCreated, rec)
	}

	s.logger.Info("billing generation finished",
		"payee_id", payeeID,
		"tier", tier,
		"period", period.String(),
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	return result, nil
}
