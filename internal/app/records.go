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

// ListRecords lists a payee's billing records. Pending records past due are
// reported overdue even before the sweep persists the transition.
func (s Service) ListRecords(ctx context.Context, payeeID uuid.UUID, filter domain.RecordFilter) ([]domain.BillingRecord, error) {
	records, err := s.repo.ListBillingRecords(ctx, payeeID, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range records {
		records[i].Status = records[i].EffectiveStatus(now)
	}
	return records, nil
}

// GetRecord returns one billing record with its derived status.
func (s Service) GetRecord(ctx context.Context, recordID uuid.UUID) (*domain.BillingRecord, error) {
	rec, err := s.repo.GetBillingRecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: billing record %s", domain.ErrNotFound, recordID)
		}
		return nil, err
	}
	rec.Status = rec.EffectiveStatus(time.Now().UTC())
	return rec, nil
}
