/**
 * @description
 * PostgreSQL persistence for the billing engine: rate configs, billing
 * records, payment proofs and QR artifacts. Status transitions are guarded
 * UPDATEs so concurrent sweeps and reviews degrade to no-ops instead of
 * double-applying; proof approval and the record transition share one
 * transaction.
 */
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/repotrack/billing-service/internal/domain"
)

// PostgresRepository handles database operations for the billing engine.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ----------------------------------------------------------------------------
// Rate configs
// ----------------------------------------------------------------------------

const rateConfigColumns = `id, tier, per_head_rate, service_rate, effective_from, is_active, notes, created_by, created_at`

func scanRateConfig(row pgx.Row) (*domain.RateConfig, error) {
	var rc domain.RateConfig
	var tier string
	if err := row.Scan(
		&rc.ID,
		&tier,
		&rc.PerHeadRate,
		&rc.ServiceRate,
		&rc.EffectiveFrom,
		&rc.IsActive,
		&rc.Notes,
		&rc.CreatedBy,
		&rc.CreatedAt,
	); err != nil {
		return nil, err
	}
	rc.Tier = domain.Tier(tier)
	return &rc, nil
}

// InsertActiveRateConfig deactivates the tier's current active config and
// inserts the new one as active, in one transaction. The partial unique
// index on (tier) WHERE is_active backstops concurrent writers.
func (r *PostgresRepository) InsertActiveRateConfig(ctx context.Context, rc *domain.RateConfig) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE rate_configs SET is_active = FALSE WHERE tier = $1 AND is_active = TRUE`,
		string(rc.Tier),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO rate_configs (id, tier, per_head_rate, service_rate, effective_from, is_active, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8)
	`,
		rc.ID,
		string(rc.Tier),
		rc.PerHeadRate,
		rc.ServiceRate,
		rc.EffectiveFrom,
		rc.Notes,
		rc.CreatedBy,
		rc.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetActiveRateConfig returns the tier's currently active config.
func (r *PostgresRepository) GetActiveRateConfig(ctx context.Context, tier domain.Tier) (*domain.RateConfig, error) {
	query := `SELECT ` + rateConfigColumns + ` FROM rate_configs WHERE tier = $1 AND is_active = TRUE`
	rc, err := scanRateConfig(r.db.QueryRow(ctx, query, string(tier)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRateNotFound
		}
		return nil, err
	}
	return rc, nil
}

// ListRateConfigs returns the tier's full rate history, newest first.
func (r *PostgresRepository) ListRateConfigs(ctx context.Context, tier domain.Tier) ([]domain.RateConfig, error) {
	query := `SELECT ` + rateConfigColumns + ` FROM rate_configs WHERE tier = $1 ORDER BY effective_from DESC`
	rows, err := r.db.Query(ctx, query, string(tier))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.RateConfig
	for rows.Next() {
		rc, err := scanRateConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *rc)
	}
	return configs, rows.Err()
}

// ----------------------------------------------------------------------------
// Billing records
// ----------------------------------------------------------------------------

const billingRecordColumns = `id, payer_id, payee_id, tier, period, headcount, deleted_headcount,
		per_head_rate, service_rate, is_prorated, prorated_days, total_days_in_period,
		prorated_service_amount, head_amount, total_amount, due_date, status, paid_date, proof_id,
		created_at, updated_at`

func scanBillingRecord(row pgx.Row) (*domain.BillingRecord, error) {
	var rec domain.BillingRecord
	var tier, period, status string
	if err := row.Scan(
		&rec.ID,
		&rec.PayerID,
		&rec.PayeeID,
		&tier,
		&period,
		&rec.Headcount,
		&rec.DeletedHeadcount,
		&rec.PerHeadRate,
		&rec.ServiceRate,
		&rec.IsProrated,
		&rec.ProratedDays,
		&rec.TotalDaysInPeriod,
		&rec.ProratedServiceAmount,
		&rec.HeadAmount,
		&rec.TotalAmount,
		&rec.DueDate,
		&status,
		&rec.PaidDate,
		&rec.ProofID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Tier = domain.Tier(tier)
	rec.Status = domain.RecordStatus(status)
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("corrupt period column %q: %w", period, err)
	}
	rec.Period = p
	return &rec, nil
}

// CreateBillingRecord inserts one record for (payer, period). A natural-key
// conflict comes back as ErrDuplicateRecord so concurrent generation runs
// converge on "already generated".
func (r *PostgresRepository) CreateBillingRecord(ctx context.Context, rec *domain.BillingRecord) error {
	query := `
		INSERT INTO billing_records (
			id, payer_id, payee_id, tier, period, headcount, deleted_headcount,
			per_head_rate, service_rate, is_prorated, prorated_days, total_days_in_period,
			prorated_service_amount, head_amount, total_amount, due_date, status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.PayerID,
		rec.PayeeID,
		string(rec.Tier),
		rec.Period.String(),
		rec.Headcount,
		rec.DeletedHeadcount,
		rec.PerHeadRate,
		rec.ServiceRate,
		rec.IsProrated,
		rec.ProratedDays,
		rec.TotalDaysInPeriod,
		rec.ProratedServiceAmount,
		rec.HeadAmount,
		rec.TotalAmount,
		rec.DueDate,
		string(rec.Status),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

// GetBillingRecordByID retrieves a single billing record.
func (r *PostgresRepository) GetBillingRecordByID(ctx context.Context, recordID uuid.UUID) (*domain.BillingRecord, error) {
	query := `SELECT ` + billingRecordColumns + ` FROM billing_records WHERE id = $1`
	rec, err := scanBillingRecord(r.db.QueryRow(ctx, query, recordID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListBillingRecords lists a payee's records, newest period first.
func (r *PostgresRepository) ListBillingRecords(ctx context.Context, payeeID uuid.UUID, filter domain.RecordFilter) ([]domain.BillingRecord, error) {
	conditions := []string{"payee_id = $1"}
	args := []interface{}{payeeID}

	if filter.PayerID != nil {
		args = append(args, *filter.PayerID)
		conditions = append(conditions, fmt.Sprintf("payer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Period != nil {
		args = append(args, filter.Period.String())
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf("LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	offsetClause := fmt.Sprintf("OFFSET $%d", len(args))

	query := `SELECT ` + billingRecordColumns + ` FROM billing_records WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY period DESC, created_at DESC ` + limitClause + ` ` + offsetClause

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BillingRecord
	for rows.Next() {
		rec, err := scanBillingRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// MarkOverdueRecords flips pending records past their due date to overdue
// and returns the transitioned rows. The status guard makes the sweep safe
// to run concurrently with live reviews.
func (r *PostgresRepository) MarkOverdueRecords(ctx context.Context, now time.Time) ([]domain.BillingRecord, error) {
	query := `
		UPDATE billing_records
		SET status = 'overdue',
		    updated_at = NOW()
		WHERE status = 'pending'
		  AND due_date < $1
		RETURNING ` + billingRecordColumns
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BillingRecord
	for rows.Next() {
		rec, err := scanBillingRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ----------------------------------------------------------------------------
// Payment proofs
// ----------------------------------------------------------------------------

const proofColumns = `id, billing_record_id, payer_id, payee_id, proof_type, image_ref,
		transaction_reference, claimed_amount, claimed_payment_date, notes, status,
		reviewer_id, reviewer_notes, reviewed_at, resubmitted_at, created_at`

func scanProof(row pgx.Row) (*domain.PaymentProof, error) {
	var p domain.PaymentProof
	var proofType, status string
	if err := row.Scan(
		&p.ID,
		&p.BillingRecordID,
		&p.PayerID,
		&p.PayeeID,
		&proofType,
		&p.ImageRef,
		&p.TransactionReference,
		&p.ClaimedAmount,
		&p.ClaimedPaymentDate,
		&p.Notes,
		&status,
		&p.ReviewerID,
		&p.ReviewerNotes,
		&p.ReviewedAt,
		&p.ResubmittedAt,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.ProofType = domain.ProofType(proofType)
	p.Status = domain.ProofStatus(status)
	return &p, nil
}

// CreateProof inserts a new pending payment proof.
func (r *PostgresRepository) CreateProof(ctx context.Context, p *domain.PaymentProof) error {
	query := `
		INSERT INTO payment_proofs (
			id, billing_record_id, payer_id, payee_id, proof_type, image_ref,
			transaction_reference, claimed_amount, claimed_payment_date, notes, status,
			resubmitted_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BillingRecordID,
		p.PayerID,
		p.PayeeID,
		string(p.ProofType),
		p.ImageRef,
		p.TransactionReference,
		p.ClaimedAmount,
		p.ClaimedPaymentDate,
		p.Notes,
		string(p.Status),
		p.ResubmittedAt,
		p.CreatedAt,
	)
	return err
}

// GetProofByID retrieves a single payment proof.
func (r *PostgresRepository) GetProofByID(ctx context.Context, proofID uuid.UUID) (*domain.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE id = $1`
	p, err := scanProof(r.db.QueryRow(ctx, query, proofID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListProofsByPayee lists proofs awaiting (or past) a payee's review.
func (r *PostgresRepository) ListProofsByPayee(ctx context.Context, payeeID uuid.UUID, status *domain.ProofStatus) ([]domain.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE payee_id = $1`
	args := []interface{}{payeeID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []domain.PaymentProof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, *p)
	}
	return proofs, rows.Err()
}

// HasRejectedProofForRecord reports whether the record already has a
// rejected proof, which marks a new submission as a resubmission.
func (r *PostgresRepository) HasRejectedProofForRecord(ctx context.Context, recordID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_proofs
			WHERE billing_record_id = $1 AND status = 'rejected'
		)
	`, recordID).Scan(&exists)
	return exists, err
}

// RejectProof marks a pending proof rejected. The billing record is left
// untouched; the payer may resubmit.
func (r *PostgresRepository) RejectProof(ctx context.Context, proofID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payment_proofs
		SET status = 'rejected',
		    reviewer_id = $2,
		    reviewer_notes = $3,
		    reviewed_at = $4
		WHERE id = $1
		  AND status = 'pending'
	`, proofID, reviewerID, notes, reviewedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetProofByID(ctx, proofID); getErr != nil {
			return getErr
		}
		return ErrProofNotPending
	}
	return nil
}

// ApproveProofAndMarkRecordPaid applies the approval and the record's
// pending -> paid transition as one transaction. Either both commit or
// neither is observable; an approved proof can never exist without its paid
// record.
func (r *PostgresRepository) ApproveProofAndMarkRecordPaid(ctx context.Context, proofID, recordID, reviewerID uuid.UUID, notes string, now time.Time) (*domain.BillingRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the record first so concurrent approvals serialize on it.
	var recordStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM billing_records WHERE id = $1 FOR UPDATE`, recordID).Scan(&recordStatus)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	// Overdue is derived from pending, so an overdue record is still payable.
	if recordStatus == string(domain.RecordStatusPaid) {
		return nil, ErrRecordNotPayable
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payment_proofs
		SET status = 'approved',
		    billing_record_id = $2,
		    reviewer_id = $3,
		    reviewer_notes = $4,
		    reviewed_at = $5
		WHERE id = $1
		  AND status = 'pending'
	`, proofID, recordID, reviewerID, notes, now)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if scanErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_proofs WHERE id = $1)`, proofID).Scan(&exists); scanErr != nil {
			return nil, scanErr
		}
		if !exists {
			return nil, ErrProofNotFound
		}
		return nil, ErrProofNotPending
	}

	rec, err := scanBillingRecord(tx.QueryRow(ctx, `
		UPDATE billing_records
		SET status = 'paid',
		    paid_date = $2,
		    proof_id = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('pending', 'overdue')
		RETURNING `+billingRecordColumns, recordID, now, proofID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotPayable
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPurgeableProofImages returns approved proofs past the retention
// window that still hold a stored image.
func (r *PostgresRepository) ListPurgeableProofImages(ctx context.Context, cutoff time.Time) ([]domain.PaymentProof, error) {
	query := `SELECT ` + proofColumns + `
		FROM payment_proofs
		WHERE status = 'approved'
		  AND reviewed_at <= $1
		  AND image_ref IS NOT NULL
		ORDER BY reviewed_at ASC`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []domain.PaymentProof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, *p)
	}
	return proofs, rows.Err()
}

// ClearProofImage drops the stored image reference while keeping the proof's
// review metadata for audit.
func (r *PostgresRepository) ClearProofImage(ctx context.Context, proofID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_proofs
		SET image_ref = NULL
		WHERE id = $1
		  AND image_ref IS NOT NULL
	`, proofID)
	return err
}

// ----------------------------------------------------------------------------
// QR artifacts
// ----------------------------------------------------------------------------

const qrColumns = `id, owner_id, image_ref, description, is_active, created_at, updated_at`

func scanQR(row pgx.Row) (*domain.PaymentQR, error) {
	var qr domain.PaymentQR
	if err := row.Scan(
		&qr.ID,
		&qr.OwnerID,
		&qr.ImageRef,
		&qr.Description,
		&qr.IsActive,
		&qr.CreatedAt,
		&qr.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &qr, nil
}

// CreateQR inserts a new inactive QR artifact.
func (r *PostgresRepository) CreateQR(ctx context.Context, qr *domain.PaymentQR) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO qr_artifacts (id, owner_id, image_ref, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		qr.ID,
		qr.OwnerID,
		qr.ImageRef,
		qr.Description,
		qr.IsActive,
		qr.CreatedAt,
		qr.UpdatedAt,
	)
	return err
}

// GetQRByID retrieves an owner's QR artifact.
func (r *PostgresRepository) GetQRByID(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_artifacts WHERE id = $1 AND owner_id = $2`
	qr, err := scanQR(r.db.QueryRow(ctx, query, qrID, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrQRNotFound
		}
		return nil, err
	}
	return qr, nil
}

// ListQRsByOwner lists an owner's QR artifacts, newest first.
func (r *PostgresRepository) ListQRsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.PaymentQR, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_artifacts WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []domain.PaymentQR
	for rows.Next() {
		qr, err := scanQR(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *qr)
	}
	return artifacts, rows.Err()
}

// ToggleQRActive flips the artifact's active flag. Activation deactivates
// the owner's other artifacts inside the same transaction so at most one is
// ever active per owner.
func (r *PostgresRepository) ToggleQRActive(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var isActive bool
	err = tx.QueryRow(ctx,
		`SELECT is_active FROM qr_artifacts WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		qrID, ownerID,
	).Scan(&isActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrQRNotFound
		}
		return nil, err
	}

	if !isActive {
		if _, err := tx.Exec(ctx,
			`UPDATE qr_artifacts SET is_active = FALSE, updated_at = NOW() WHERE owner_id = $1 AND is_active = TRUE`,
			ownerID,
		); err != nil {
			return nil, err
		}
	}

	qr, err := scanQR(tx.QueryRow(ctx, `
		UPDATE qr_artifacts
		SET is_active = $3,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+qrColumns, qrID, ownerID, !isActive))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return qr, nil
}

// DeleteQRIfInactive removes the artifact and returns its image reference
// for blob cleanup. Deleting an active artifact fails the precondition.
func (r *PostgresRepository) DeleteQRIfInactive(ctx context.Context, qrID, ownerID uuid.UUID) (string, error) {
	var imageRef string
	err := r.db.QueryRow(ctx, `
		DELETE FROM qr_artifacts
		WHERE id = $1
		  AND owner_id = $2
		  AND is_active = FALSE
		RETURNING image_ref
	`, qrID, ownerID).Scan(&imageRef)
	if err != nil {
		if err == pgx.ErrNoRows {
			if _, getErr := r.GetQRByID(ctx, qrID, ownerID); getErr != nil {
				return "", getErr
			}
			return "", ErrQRActive
		}
		return "", err
	}
	return imageRef, nil
}
