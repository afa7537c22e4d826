/**
 * @description
 * Rate store operations. Rate configs are append-only: setting a rate
 * supersedes the tier's previously active config inside one transaction, so
 * two configs are never simultaneously active.
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
	eventRateSet = "billing.rate.set"
)

// SetRate installs a new active rate config for a payer tier.
func (s Service) SetRate(ctx context.Context, tier domain.Tier, perHeadRate, serviceRate decimal.Decimal, notes string, actor domain.Actor) (*domain.RateConfig, error) {
	if !tier.Billable() {
		return nil, fmt.Errorf("%w: tier %q has no payee to collect from", domain.ErrValidation, tier)
	}
	if perHeadRate.IsNegative() {
		return nil, fmt.Errorf("%w: per-head rate must not be negative", domain.ErrValidation)
	}
	if serviceRate.IsNegative() {
		return nil, fmt.Errorf("%w: service rate must not be negative", domain.ErrValidation)
	}

	now := time.Now().UTC()
	rc := &domain.RateConfig{
		ID:            uuid.New(),
		Tier:          tier,
		PerHeadRate:   perHeadRate.Round(2),
		ServiceRate:   serviceRate.Round(2),
		EffectiveFrom: now,
		IsActive:      true,
		Notes:         notes,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
	}

	if err := s.repo.InsertActiveRateConfig(ctx, rc); err != nil {
		return nil, fmt.Errorf("failed to install rate config: %w", err)
	}

	s.publishEvent(ctx, eventRateSet, rc)
	return rc, nil
}

// GetActiveRate returns the tier's currently effective rate config.
func (s Service) GetActiveRate(ctx context.Context, tier domain.Tier) (*domain.RateConfig, error) {
	rc, err := s.repo.GetActiveRateConfig(ctx, tier)
	if err != nil {
		if errors.Is(err, store.ErrRateNotFound) {
			return nil, fmt.Errorf("%w: no active rate for tier %q", domain.ErrNotFound, tier)
		}
		return nil, err
	}
	return rc, nil
}

// ListRates returns the tier's rate history, the audit trail the
// append-only store exists for.
func (s Service) ListRates(ctx context.Context, tier domain.Tier) ([]domain.RateConfig, error) {
	return s.repo.ListRateConfigs(ctx, tier)
}
