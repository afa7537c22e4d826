package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
)

func TestListRecords_DerivesOverdueBeforeSweep(t *testing.T) {
	env := newTestEnv(Options{Timezone: "UTC"})
	ctx := context.Background()
	payee := uuid.New()
	now := time.Now().UTC()

	pastDue := seedPendingRecord(t, env, uuid.New(), payee)
	env.repo.records[pastDue.ID].DueDate = now.Add(-time.Hour)

	current := seedPendingRecord(t, env, uuid.New(), payee)
	env.repo.records[current.ID].DueDate = now.Add(time.Hour)

	records, err := env.service.ListRecords(ctx, payee, domain.RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	byID := make(map[uuid.UUID]domain.RecordStatus, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec.Status
	}
	if byID[pastDue.ID] != domain.RecordStatusOverdue {
		t.Fatalf("past-due record reported %s, want overdue", byID[pastDue.ID])
	}
	if byID[current.ID] != domain.RecordStatusPending {
		t.Fatalf("current record reported %s, want pending", byID[current.ID])
	}

	// The derivation is read-time only; the stored status is untouched.
	if env.repo.records[pastDue.ID].Status != domain.RecordStatusPending {
		t.Fatal("listing must not persist the overdue transition")
	}
}

func TestListRecords_FilterByPayer(t *testing.T) {
	env := newTestEnv(Options{Timezone: "UTC"})
	ctx := context.Background()
	payee := uuid.New()
	payer := uuid.New()

	seedPendingRecord(t, env, payer, payee)
	seedPendingRecord(t, env, uuid.New(), payee)

	records, err := env.service.ListRecords(ctx, payee, domain.RecordFilter{PayerID: &payer})
	if err != nil {
		t.Fatalf("ListRecords returned error: %v", err)
	}
	if len(records) != 1 || records[0].PayerID != payer {
		t.Fatalf("filtered records = %v, want the single record for payer %s", records, payer)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	env := newTestEnv(Options{Timezone: "UTC"})

	_, err := env.service.GetRecord(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want not-found error", err)
	}
}
