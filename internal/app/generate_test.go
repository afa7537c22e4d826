package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repotrack/billing-service/internal/domain"
)

type generateFixture struct {
	env    *testEnv
	payee  uuid.UUID
	period domain.Period
	actor  domain.Actor
}

// newGenerateFixture sets up one super_admin payee with admin payers under
// it, each admin owning the given user accounts.
func newGenerateFixture(t *testing.T) *generateFixture {
	t.Helper()

	env := newTestEnv(Options{Timezone: "UTC"})
	payee := uuid.New()
	actor := domain.Actor{ID: payee, Role: domain.TierSuperAdmin}

	_, err := env.service.SetRate(context.Background(), domain.TierAdmin,
		decimal.RequireFromString("100"), decimal.RequireFromString("2000"), "", actor)
	if err != nil {
		t.Fatalf("SetRate returned error: %v", err)
	}
	env.publisher.events = nil

	return &generateFixture{
		env:    env,
		payee:  payee,
		period: domain.Period{Year: 2025, Month: time.June},
		actor:  actor,
	}
}

func (f *generateFixture) addPayer(createdAt time.Time, users ...domain.Subordinate) uuid.UUID {
	payerID := uuid.New()
	f.env.directory.add(f.payee, domain.TierAdmin, domain.Subordinate{ID: payerID, CreatedAt: createdAt})
	for _, u := range users {
		f.env.directory.add(payerID, domain.TierUser, u)
	}
	return payerID
}

func TestGenerate_EndToEnd(t *testing.T) {
	f := newGenerateFixture(t)
	before := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	deleted := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

	// Three active user accounts plus one deleted mid-period: all four billed.
	payerID := f.addPayer(before,
		domain.Subordinate{ID: uuid.New(), CreatedAt: before},
		domain.Subordinate{ID: uuid.New(), CreatedAt: before},
		domain.Subordinate{ID: uuid.New(), CreatedAt: before},
		domain.Subordinate{ID: uuid.New(), CreatedAt: before, DeletedAt: &deleted},
	)

	result, err := f.env.service.Generate(context.Background(), f.payee, domain.TierAdmin, f.period, f.actor)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Created) != 1 || len(result.Skipped) != 0 {
		t.Fatalf("created=%d skipped=%d, want 1/0", len(result.Created), len(result.Skipped))
	}

	rec := result.Created[0]
	if rec.PayerID != payerID || rec.PayeeID != f.payee {
		t.Fatalf("record parties = %s->%s, want %s->%s", rec.PayerID, rec.PayeeID, payerID, f.payee)
	}
	if rec.Headcount != 4 || rec.DeletedHeadcount != 1 {
		t.Fatalf("headcount=%d deleted=%d, want 4/1", rec.Headcount, rec.DeletedHeadcount)
	}
	if want := decimal.RequireFromString("400"); !rec.HeadAmount.Equal(want) {
		t.Fatalf("head amount = %s, want %s", rec.HeadAmount, want)
	}
	if want := decimal.RequireFromString("2400"); !rec.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", rec.TotalAmount, want)
	}
	if rec.IsProrated {
		t.Fatal("payer created before the period must not be prorated")
	}
	if rec.Status != domain.RecordStatusPending {
		t.Fatalf("status = %s, want pending", rec.Status)
	}
	if !rec.DueDate.Equal(f.period.End(time.UTC)) {
		t.Fatalf("due date = %v, want last instant of period %v", rec.DueDate, f.period.End(time.UTC))
	}

	keys := f.env.publisher.keys()
	if len(keys) != 1 || keys[0] != "billing.record.created" {
		t.Fatalf("published keys = %v, want [billing.record.created]", keys)
	}
}

func TestGenerate_RerunSkipsExistingRecords(t *testing.T) {
	f := newGenerateFixture(t)
	before := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	payerID := f.addPayer(before, domain.Subordinate{ID: uuid.New(), CreatedAt: before})

	if _, err := f.env.service.Generate(context.Background(), f.payee, domain.TierAdmin, f.period, f.actor); err != nil {
		t.Fatalf("first Generate returned error: %v", err)
	}

	result, err := f.env.service.Generate(context.Background(), f.payee, domain.TierAdmin, f.period, f.actor)
	if err != nil {
		t.Fatalf("second Generate returned error: %v", err)
	}
	if len(result.Created) != 0 {
		t.Fatalf("re-run created %d records, want 0", len(result.Created))
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != payerID {
		t.Fatalf("re-run skipped = %v, want [%s]", result.Skipped, payerID)
	}
}

func TestGenerate_AbortsWhenRateMissing(t *testing.T) {
	env := newTestEnv(Options{Timezone: "UTC"})
	payee := uuid.New()
	actor := domain.Actor{ID: payee, Role: domain.TierSuperSuperAdmin}
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	env.directory.add(payee, domain.TierSuperAdmin, domain.Subordinate{ID: uuid.New(), CreatedAt: created})

	_, err := env.service.Generate(context.Background(), payee, domain.TierSuperAdmin,
		domain.Period{Year: 2025, Month: time.June}, actor)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want not-found error for missing rate", err)
	}
	if len(env.repo.records) != 0 {
		t.Fatalf("generation without a rate created %d records, want none", len(env.repo.records))
	}
}

func TestGenerate_RejectsNonBillableTier(t *testing.T) {
	f := newGenerateFixture(t)

	_, err := f.env.service.Generate(context.Background(), f.payee, domain.TierSuperSuperAdmin, f.period, f.actor)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestGenerate_SkipsPayersOutsidePeriod(t *testing.T) {
	f := newGenerateFixture(t)
	before := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	// Created after the period ends: not billable for it.
	f.addPayer(time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC))

	// Deleted before the period starts: no longer billable.
	gone := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	payerID := uuid.New()
	f.env.directory.add(f.payee, domain.TierAdmin, domain.Subordinate{ID: payerID, CreatedAt: before, DeletedAt: &gone})

	result, err := f.env.service.Generate(context.Background(), f.payee, domain.TierAdmin, f.period, f.actor)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Created) != 0 || len(result.Skipped) != 0 {
		t.Fatalf("created=%d skipped=%d, want 0/0", len(result.Created), len(result.Skipped))
	}
}

func TestGenerate_ProratesMidPeriodPayer(t *testing.T) {
	f := newGenerateFixture(t)

	// Payer account created June 16: 15 of 30 days remain.
	f.addPayer(time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC))

	result, err := f.env.service.Generate(context.Background(), f.payee, domain.TierAdmin, f.period, f.actor)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("created = %d, want 1", len(result.Created))
	}

	rec := result.Created[0]
	if !rec.IsProrated || rec.ProratedDays != 15 || rec.TotalDaysInPeriod != 30 {
		t.Fatalf("proration = %v %d/%d, want 15/30", rec.IsProrated, rec.ProratedDays, rec.TotalDaysInPeriod)
	}
	// 2000 * 15/30 = 1000 service; no users yet, so no head amount.
	if want := decimal.RequireFromString("1000"); !rec.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", rec.TotalAmount, want)
	}
}
