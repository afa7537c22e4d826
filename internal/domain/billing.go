/**
 * @description
 * Core billing entities: versioned rate configuration and the per-period
 * billing record. Rates are captured onto each record at generation time so
 * later rate changes never rewrite history.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordStatus is the billing record state machine's state.
type RecordStatus string

const (
	RecordStatusPending RecordStatus = "pending"
	RecordStatusPaid    RecordStatus = "paid"
	// RecordStatusOverdue is derived: a pending record past its due date. The
	// sweep persists it, but reads must report it even before the sweep runs.
	RecordStatusOverdue RecordStatus = "overdue"
)

// RateConfig is one version of the (per-head, flat service) rate pair for a
// payer tier. Append-only: a new active config supersedes the prior one and
// existing rows are never mutated.
type RateConfig struct {
	ID            uuid.UUID       `json:"id"`
	Tier          Tier            `json:"tier"`
	PerHeadRate   decimal.Decimal `json:"per_head_rate"`
	ServiceRate   decimal.Decimal `json:"service_rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	IsActive      bool            `json:"is_active"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BillingRecord is one payer's due for one calendar period. Exactly one
// record exists per (payer, period); the unique key makes generation
// idempotent.
type BillingRecord struct {
	ID                    uuid.UUID       `json:"id"`
	PayerID               uuid.UUID       `json:"payer_id"`
	PayeeID               uuid.UUID       `json:"payee_id"`
	Tier                  Tier            `json:"tier"`
	Period                Period          `json:"period"`
	Headcount             int             `json:"headcount"`
	DeletedHeadcount      int             `json:"deleted_headcount"`
	PerHeadRate           decimal.Decimal `json:"per_head_rate"`
	ServiceRate           decimal.Decimal `json:"service_rate"`
	IsProrated            bool            `json:"is_prorated"`
	ProratedDays          int             `json:"prorated_days"`
	TotalDaysInPeriod     int             `json:"total_days_in_period"`
	ProratedServiceAmount decimal.Decimal `json:"prorated_service_amount"`
	HeadAmount            decimal.Decimal `json:"head_amount"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	DueDate               time.Time       `json:"due_date"`
	Status                RecordStatus    `json:"status"`
	PaidDate              *time.Time      `json:"paid_date,omitempty"`
	ProofID               *uuid.UUID      `json:"proof_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// EffectiveStatus derives the externally observed status at time now. A
// pending record past due reports overdue whether or not the sweep has
// persisted it yet.
func (r BillingRecord) EffectiveStatus(now time.Time) RecordStatus {
	if r.Status == RecordStatusPending && now.After(r.DueDate) {
		return RecordStatusOverdue
	}
	return r.Status
}
