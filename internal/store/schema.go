/**
 * @description
 * Idempotent schema bootstrap. Executed at startup so a fresh database is
 * usable without a separate migration step.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS rate_configs (
    id UUID PRIMARY KEY,
    tier TEXT NOT NULL,
    per_head_rate NUMERIC(12, 2) NOT NULL,
    service_rate NUMERIC(12, 2) NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    notes TEXT NOT NULL DEFAULT '',
    created_by UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS rate_configs_one_active_per_tier
    ON rate_configs (tier) WHERE is_active;

CREATE TABLE IF NOT EXISTS billing_records (
    id UUID PRIMARY KEY,
    payer_id UUID NOT NULL,
    payee_id UUID NOT NULL,
    tier TEXT NOT NULL,
    period TEXT NOT NULL,
    headcount INT NOT NULL,
    deleted_headcount INT NOT NULL DEFAULT 0,
    per_head_rate NUMERIC(12, 2) NOT NULL,
    service_rate NUMERIC(12, 2) NOT NULL,
    is_prorated BOOLEAN NOT NULL DEFAULT FALSE,
    prorated_days INT NOT NULL DEFAULT 0,
    total_days_in_period INT NOT NULL,
    prorated_service_amount NUMERIC(12, 2) NOT NULL,
    head_amount NUMERIC(12, 2) NOT NULL,
    total_amount NUMERIC(12, 2) NOT NULL,
    due_date TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    paid_date TIMESTAMPTZ,
    proof_id UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (payer_id, period)
);
CREATE INDEX IF NOT EXISTS billing_records_payee_idx
    ON billing_records (payee_id, period);
CREATE INDEX IF NOT EXISTS billing_records_status_due_idx
    ON billing_records (status, due_date);

CREATE TABLE IF NOT EXISTS payment_proofs (
    id UUID PRIMARY KEY,
    billing_record_id UUID REFERENCES billing_records (id),
    payer_id UUID NOT NULL,
    payee_id UUID NOT NULL,
    proof_type TEXT NOT NULL,
    image_ref TEXT,
    transaction_reference TEXT,
    claimed_amount NUMERIC(12, 2) NOT NULL,
    claimed_payment_date TIMESTAMPTZ NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    reviewer_id UUID,
    reviewer_notes TEXT,
    reviewed_at TIMESTAMPTZ,
    resubmitted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS payment_proofs_payee_status_idx
    ON payment_proofs (payee_id, status);
CREATE INDEX IF NOT EXISTS payment_proofs_record_idx
    ON payment_proofs (billing_record_id);

CREATE TABLE IF NOT EXISTS qr_artifacts (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    image_ref TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS qr_artifacts_owner_idx
    ON qr_artifacts (owner_id);

CREATE TABLE IF NOT EXISTS operators (
    id UUID PRIMARY KEY,
    parent_id UUID,
    tier TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS operators_parent_tier_idx
    ON operators (parent_id, tier);
`

// EnsureSchema creates the billing tables if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaDDL)
	return err
}
