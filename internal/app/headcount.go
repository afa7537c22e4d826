/**
 * @description
 * Headcount resolution. The inclusion rule bills every qualifying
 * account-month exactly once: an account counts toward activeAtEnd for every
 * period before its deletion period, and toward deletedWithinPeriod in the
 * period it is deleted, regardless of when it was created.
 */
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
)

// Headcount is the billable subordinate count for one payer and period.
type Headcount struct {
	Total               int `json:"total"`
	DeletedWithinPeriod int `json:"deleted_within_period"`
}

// ResolveHeadcount counts the accounts at tier that ownerID is billed for in
// the period. Under the global scope policy the owner is ignored and the
// whole tier is counted.
func (s Service) ResolveHeadcount(ctx context.Context, ownerID uuid.UUID, tier domain.Tier, period domain.Period) (Headcount, error) {
	var (
		subs []domain.Subordinate
		err  error
	)
	switch s.scope {
	case ScopeGlobal:
		subs, err = s.directory.ListTierMembers(ctx, tier)
	default:
		subs, err = s.directory.ListSubordinates(ctx, ownerID, tier)
	}
	if err != nil {
		return Headcount{}, fmt.Errorf("failed to list subordinates: %w", err)
	}

	return countHeadcount(subs, period, s.loc), nil
}

func countHeadcount(subs []domain.Subordinate, period domain.Period, loc *time.Location) Headcount {
	start := period.Start(loc)
	end := period.End(loc)

	var hc Headcount
	for _, sub := range subs {
		if sub.DeletedAt != nil && !sub.DeletedAt.Before(start) && !sub.DeletedAt.After(end) {
			// Deleted within the period: billed for this period even if it
			// was also created within it.
			hc.DeletedWithinPeriod++
			hc.Total++
			continue
		}
		if sub.CreatedAt.After(end) {
			continue
		}
		if sub.DeletedAt != nil && !sub.DeletedAt.After(end) {
			// Deleted in an earlier period; already billed then.
			continue
		}
		hc.Total++
	}
	return hc
}
