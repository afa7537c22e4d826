/**
 * @description
 * Blob storage for proof and QR images. The engine only depends on the Store
 * interface; the disk implementation keeps the service runnable without an
 * external object store.
 */
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrBlobNotFound is returned when a reference does not resolve to a blob.
var ErrBlobNotFound = errors.New("blob not found")

// Store persists opaque image bytes and returns a retrievable reference.
type Store interface {
	Save(ctx context.Context, data []byte) (string, error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore is a content-addressed Store rooted at a local directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(ref string) string {
	// Shard by the first two hex chars to keep directories small.
	return filepath.Join(s.root, ref[:2], ref)
}

// Save writes the bytes under their content hash. Saving the same bytes
// twice yields the same reference, which is harmless.
func (s *DiskStore) Save(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty blob")
	}
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

// Load reads the bytes for a reference.
func (s *DiskStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if len(ref) < 2 {
		return nil, ErrBlobNotFound
	}
	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes the blob. Deleting a missing reference is not an error so
// retention sweeps stay idempotent.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	if len(ref) < 2 {
		return nil
	}
	if err := os.Remove(s.path(ref)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
