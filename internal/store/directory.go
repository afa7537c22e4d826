/**
 * @description
 * Read-only view over the operator directory maintained by the user
 * lifecycle system. The billing engine only needs creation and deletion
 * timestamps to resolve headcounts; it never writes these rows.
 */
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/repotrack/billing-service/internal/domain"
)

// PostgresDirectory reads subordinate accounts from the operators table.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory creates a new directory reader.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// ListSubordinates returns the accounts at the given tier directly under
// ownerID, including deleted ones: deletion within a period still counts
// toward that period's headcount.
func (d *PostgresDirectory) ListSubordinates(ctx context.Context, ownerID uuid.UUID, tier domain.Tier) ([]domain.Subordinate, error) {
	rows, err := d.db.Query(ctx, `
		SELECT id, created_at, deleted_at
		FROM operators
		WHERE parent_id = $1
		  AND tier = $2
		ORDER BY created_at ASC
	`, ownerID, string(tier))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subordinate
	for rows.Next() {
		var sub domain.Subordinate
		if err := rows.Scan(&sub.ID, &sub.CreatedAt, &sub.DeletedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListTierMembers returns every account at the tier regardless of parent.
// Used by the system-wide headcount scope policy.
func (d *PostgresDirectory) ListTierMembers(ctx context.Context, tier domain.Tier) ([]domain.Subordinate, error) {
	rows, err := d.db.Query(ctx, `
		SELECT id, created_at, deleted_at
		FROM operators
		WHERE tier = $1
		ORDER BY created_at ASC
	`, string(tier))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subordinate
	for rows.Next() {
		var sub domain.Subordinate
		if err := rows.Scan(&sub.ID, &sub.CreatedAt, &sub.DeletedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
