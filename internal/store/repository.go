/**
 * @description
 * Sentinel errors and helpers shared by the Postgres repository. The app
 * layer translates these into the engine's error kinds; handlers never see
 * raw database errors.
 */
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrRateNotFound   = errors.New("rate config not found")
	ErrRecordNotFound = errors.New("billing record not found")
	ErrProofNotFound  = errors.New("payment proof not found")
	ErrQRNotFound     = errors.New("qr artifact not found")

	// ErrDuplicateRecord signals the (payer_id, period) natural key already
	// holds a row. Generation treats this as "skipped", never as a failure.
	ErrDuplicateRecord = errors.New("billing record already exists for period")

	// ErrRecordNotPayable signals a record no longer awaiting payment. Overdue
	// is derived from pending, so only paid records are unpayable.
	ErrRecordNotPayable = errors.New("billing record is not awaiting payment")

	ErrProofNotPending = errors.New("payment proof is not pending")
	ErrQRActive        = errors.New("qr artifact is active")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
