/**
 * @description
 * QR registry: the payee's payment-receiving artifacts. An artifact must be
 * deactivated before it can be deleted, and activating one deactivates the
 * owner's others so payers always see a single active target.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
	"github.com/repotrack/billing-service/internal/store"
)

// UploadQR stores the image and registers a new, initially inactive
// artifact.
func (s Service) UploadQR(ctx context.Context, ownerID uuid.UUID, image []byte, description string) (*domain.PaymentQR, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: QR image is required", domain.ErrValidation)
	}

	ref, err := s.blobs.Save(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to store QR image: %w", err)
	}

	now := time.Now().UTC()
	qr := &domain.PaymentQR{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ImageRef:    ref,
		Description: description,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateQR(ctx, qr); err != nil {
		return nil, fmt.Errorf("failed to create QR artifact: %w", err)
	}
	return qr, nil
}

// ToggleQR flips the artifact's active flag.
func (s Service) ToggleQR(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error) {
	qr, err := s.repo.ToggleQRActive(ctx, qrID, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrQRNotFound) {
			return nil, fmt.Errorf("%w: QR artifact %s", domain.ErrNotFound, qrID)
		}
		return nil, err
	}
	return qr, nil
}

// DeleteQR removes an inactive artifact and its stored image. Deleting an
// active artifact fails the precondition; deactivate it first.
func (s Service) DeleteQR(ctx context.Context, qrID, ownerID uuid.UUID) error {
	imageRef, err := s.repo.DeleteQRIfInactive(ctx, qrID, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrQRNotFound):
			return fmt.Errorf("%w: QR artifact %s", domain.ErrNotFound, qrID)
		case errors.Is(err, store.ErrQRActive):
			return fmt.Errorf("%w: QR artifact is active, deactivate it before deleting", domain.ErrPreconditionFailed)
		}
		return err
	}

	if err := s.blobs.Delete(ctx, imageRef); err != nil {
		// The registry row is gone; an orphaned blob is only wasted space.
		s.logger.Warn("failed to delete QR image blob", "qr_id", qrID, "error", err)
	}
	return nil
}

// ListQRs returns the owner's artifacts.
func (s Service) ListQRs(ctx context.Context, ownerID uuid.UUID) ([]domain.PaymentQR, error) {
	return s.repo.ListQRsByOwner(ctx, ownerID)
}
