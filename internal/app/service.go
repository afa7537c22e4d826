/**
 * @description
 * Core business logic for the billing engine: rate configuration, period
 * billing-record generation, the proof review workflow and the QR registry.
 * Collaborators are consumed through interfaces so the engine stays
 * independent of the database, broker and blob store behind it.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
	"github.com/repotrack/billing-service/pkg/blobstore"
)

// ScopePolicy selects whose accounts a headcount covers. The observed
// behavior of the predecessor system counted platform-wide in one code path;
// whether that was intentional is unresolved, so both policies are
// supported and the choice is configuration.
type ScopePolicy string

const (
	// ScopePayee counts only the payee's own subordinates.
	ScopePayee ScopePolicy = "payee"
	// ScopeGlobal counts every account at the tier, platform-wide.
	ScopeGlobal ScopePolicy = "global"
)

// ParseScopePolicy validates a headcount scope string.
func ParseScopePolicy(s string) (ScopePolicy, error) {
	switch ScopePolicy(s) {
	case ScopePayee, ScopeGlobal:
		return ScopePolicy(s), nil
	}
	return "", fmt.Errorf("%w: unknown headcount scope %q", domain.ErrValidation, s)
}

// Repository defines the database operations the engine needs.
type Repository interface {
	InsertActiveRateConfig(ctx context.Context, rc *domain.RateConfig) error
	GetActiveRateConfig(ctx context.Context, tier domain.Tier) (*domain.RateConfig, error)
	ListRateConfigs(ctx context.Context, tier domain.Tier) ([]domain.RateConfig, error)

	CreateBillingRecord(ctx context.Context, rec *domain.BillingRecord) error
	GetBillingRecordByID(ctx context.Context, recordID uuid.UUID) (*domain.BillingRecord, error)
	ListBillingRecords(ctx context.Context, payeeID uuid.UUID, filter domain.RecordFilter) ([]domain.BillingRecord, error)
	MarkOverdueRecords(ctx context.Context, now time.Time) ([]domain.BillingRecord, error)

	CreateProof(ctx context.Context, p *domain.PaymentProof) error
	GetProofByID(ctx context.Context, proofID uuid.UUID) (*domain.PaymentProof, error)
	ListProofsByPayee(ctx context.Context, payeeID uuid.UUID, status *domain.ProofStatus) ([]domain.PaymentProof, error)
	HasRejectedProofForRecord(ctx context.Context, recordID uuid.UUID) (bool, error)
	RejectProof(ctx context.Context, proofID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error
	ApproveProofAndMarkRecordPaid(ctx context.Context, proofID, recordID, reviewerID uuid.UUID, notes string, now time.Time) (*domain.BillingRecord, error)
	ListPurgeableProofImages(ctx context.Context, cutoff time.Time) ([]domain.PaymentProof, error)
	ClearProofImage(ctx context.Context, proofID uuid.UUID) error

	CreateQR(ctx context.Context, qr *domain.PaymentQR) error
	GetQRByID(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error)
	ListQRsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.PaymentQR, error)
	ToggleQRActive(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error)
	DeleteQRIfInactive(ctx context.Context, qrID, ownerID uuid.UUID) (string, error)
}

// Directory defines the user-lifecycle reads the engine consumes.
type Directory interface {
	ListSubordinates(ctx context.Context, ownerID uuid.UUID, tier domain.Tier) ([]domain.Subordinate, error)
	ListTierMembers(ctx context.Context, tier domain.Tier) ([]domain.Subordinate, error)
}

// EventPublisher defines the interface for publishing lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// Options carries the engine's policy configuration.
type Options struct {
	Timezone       string
	HeadcountScope ScopePolicy
	ProofRetention time.Duration
}

// Service provides the billing engine's operations.
type Service struct {
	repo      Repository
	directory Directory
	blobs     blobstore.Store
	publisher EventPublisher
	logger    *slog.Logger
	loc       *time.Location
	scope     ScopePolicy
	retention time.Duration
}

// NewService creates a new billing service.
func NewService(repo Repository, directory Directory, blobs blobstore.Store, publisher EventPublisher, logger *slog.Logger, opts Options) Service {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, defaulting to UTC", "timezone", opts.Timezone)
		loc = time.UTC
	}

	scope := opts.HeadcountScope
	if scope == "" {
		scope = ScopePayee
	}
	retention := opts.ProofRetention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return Service{
		repo:      repo,
		directory: directory,
		blobs:     blobs,
		publisher: publisher,
		logger:    logger,
		loc:       loc,
		scope:     scope,
		retention: retention,
	}
}

func (s Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}
