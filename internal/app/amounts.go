/**
 * @description
 * Period amount arithmetic. The flat service charge is prorated when the
 * payer's own account was created mid-period; the per-head amount is never
 * prorated. All rounding is half-up to 2 decimals so amounts never drift
 * between tiers.
 */
package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/repotrack/billing-service/internal/domain"
)

// AmountBreakdown is the computed due for one payer and period.
type AmountBreakdown struct {
	Headcount             int
	HeadAmount            decimal.Decimal
	IsProrated            bool
	ProratedDays          int
	TotalDaysInPeriod     int
	ProratedServiceAmount decimal.Decimal
	TotalAmount           decimal.Decimal
}

// ComputeAmount combines headcount, the captured rate and payer-account
// proration into the period's due amounts.
func ComputeAmount(headcount int, rate domain.RateConfig, payerCreatedAt time.Time, period domain.Period, loc *time.Location) AmountBreakdown {
	totalDays := period.Days()
	headAmount := rate.PerHeadRate.Mul(decimal.NewFromInt(int64(headcount))).Round(2)

	b := AmountBreakdown{
		Headcount:         headcount,
		HeadAmount:        headAmount,
		TotalDaysInPeriod: totalDays,
		ProratedDays:      totalDays,
	}

	if period.Contains(payerCreatedAt, loc) {
		remaining := totalDays - payerCreatedAt.In(loc).Day() + 1
		b.ProratedDays = remaining
		b.IsProrated = remaining < totalDays
	}

	if b.IsProrated {
		b.ProratedServiceAmount = rate.ServiceRate.
			Mul(decimal.NewFromInt(int64(b.ProratedDays))).
			Div(decimal.NewFromInt(int64(totalDays))).
			Round(2)
		b.TotalAmount = headAmount.Add(b.ProratedServiceAmount)
	} else {
		b.TotalAmount = headAmount.Add(rate.ServiceRate)
	}
	return b
}
