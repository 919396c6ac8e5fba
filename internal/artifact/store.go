package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"autograde-backend/internal/shared/storage/object"
	"autograde-backend/internal/shared/telemetry"
)

// ErrNotFound is returned by Get for refs that were never written.
var ErrNotFound = object.ErrNotFound

// Store persists and retrieves analysis artifacts through an ObjectStore.
// Each (id, role) pair is written at most once; ids are generated fresh per
// request, so Put never races with itself.
type Store struct {
	objects object.ObjectStore
}

// NewStore wraps an ObjectStore for artifact access.
func NewStore(objects object.ObjectStore) *Store {
	return &Store{objects: objects}
}

// Put writes the artifact bytes under the ref's storage key.
func (s *Store) Put(ctx context.Context, ref Ref, contentType string, data []byte) error {
	if _, err := s.objects.Put(ctx, ref.StorageKey(), contentType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put %s artifact: %w", ref.Role, err)
	}
	return nil
}

// Get returns the artifact bytes and a sniffed content type, or ErrNotFound.
func (s *Store) Get(ctx context.Context, ref Ref) ([]byte, string, error) {
	rc, err := s.objects.Open(ctx, ref.StorageKey())
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read %s artifact: %w", ref.Role, err)
	}
	return data, http.DetectContentType(data), nil
}

type remover interface {
	Remove(ctx context.Context, storageKey string) error
}

// Discard best-effort removes a previously written artifact. Used to avoid
// leaving a lone original behind when the annotated write fails; failures are
// logged, not returned.
func (s *Store) Discard(ctx context.Context, ref Ref) {
	rm, ok := s.objects.(remover)
	if !ok {
		return
	}
	if err := rm.Remove(ctx, ref.StorageKey()); err != nil {
		telemetry.Error("artifact.discard.failed", map[string]any{
			"key": ref.StorageKey(),
			"err": err.Error(),
		})
	}
}
