package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
)

func ts(day int) time.Time {
	return time.Date(2025, time.June, day, 12, 0, 0, 0, time.UTC)
}

func tsPtr(day int) *time.Time {
	t := ts(day)
	return &t
}

func TestCountHeadcount(t *testing.T) {
	period := domain.Period{Year: 2025, Month: time.June}
	earlier := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		sub         domain.Subordinate
		wantTotal   int
		wantDeleted int
	}{
		{
			name:      "active through the period",
			sub:       domain.Subordinate{CreatedAt: earlier},
			wantTotal: 1,
		},
		{
			name:      "created mid-period",
			sub:       domain.Subordinate{CreatedAt: ts(20)},
			wantTotal: 1,
		},
		{
			name: "created after the period",
			sub:  domain.Subordinate{CreatedAt: later},
		},
		{
			name:        "deleted mid-period",
			sub:         domain.Subordinate{CreatedAt: earlier, DeletedAt: tsPtr(10)},
			wantTotal:   1,
			wantDeleted: 1,
		},
		{
			name:        "created and deleted within the same period",
			sub:         domain.Subordinate{CreatedAt: ts(5), DeletedAt: tsPtr(12)},
			wantTotal:   1,
			wantDeleted: 1,
		},
		{
			name: "deleted before the period",
			sub:  domain.Subordinate{CreatedAt: earlier, DeletedAt: &earlier},
		},
		{
			name:      "deleted after the period",
			sub:       domain.Subordinate{CreatedAt: earlier, DeletedAt: &later},
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := countHeadcount([]domain.Subordinate{tt.sub}, period, time.UTC)
			if hc.Total != tt.wantTotal || hc.DeletedWithinPeriod != tt.wantDeleted {
				t.Fatalf("got total=%d deleted=%d, want total=%d deleted=%d",
					hc.Total, hc.DeletedWithinPeriod, tt.wantTotal, tt.wantDeleted)
			}
		})
	}
}

func TestResolveHeadcount_ScopePolicies(t *testing.T) {
	period := domain.Period{Year: 2025, Month: time.June}
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	ownerA := uuid.New()
	ownerB := uuid.New()

	payeeEnv := newTestEnv(Options{Timezone: "UTC", HeadcountScope: ScopePayee})
	globalEnv := newTestEnv(Options{Timezone: "UTC", HeadcountScope: ScopeGlobal})

	for _, dir := range []*fakeDirectory{payeeEnv.directory, globalEnv.directory} {
		dir.add(ownerA, domain.TierUser, domain.Subordinate{ID: uuid.New(), CreatedAt: created})
		dir.add(ownerA, domain.TierUser, domain.Subordinate{ID: uuid.New(), CreatedAt: created})
		dir.add(ownerB, domain.TierUser, domain.Subordinate{ID: uuid.New(), CreatedAt: created})
	}

	hc, err := payeeEnv.service.ResolveHeadcount(context.Background(), ownerA, domain.TierUser, period)
	if err != nil {
		t.Fatalf("ResolveHeadcount returned error: %v", err)
	}
	if hc.Total != 2 {
		t.Fatalf("payee scope total = %d, want 2", hc.Total)
	}

	hc, err = globalEnv.service.ResolveHeadcount(context.Background(), ownerA, domain.TierUser, period)
	if err != nil {
		t.Fatalf("ResolveHeadcount returned error: %v", err)
	}
	if hc.Total != 3 {
		t.Fatalf("global scope total = %d, want 3", hc.Total)
	}
}
