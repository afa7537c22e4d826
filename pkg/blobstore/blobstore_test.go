package blobstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}
	ctx := context.Background()

	data := []byte("qr image bytes")
	ref, err := store.Save(ctx, data)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Load = %q, want %q", got, data)
	}

	// Content addressing: the same bytes yield the same ref.
	again, err := store.Save(ctx, data)
	if err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	if again != ref {
		t.Fatalf("refs differ for identical content: %q vs %q", again, ref)
	}
}

func TestDiskStoreDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Save(ctx, []byte("to be removed"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Load(ctx, ref); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("Load after delete = %v, want ErrBlobNotFound", err)
	}

	// Deleting a missing blob is a no-op.
	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
}
