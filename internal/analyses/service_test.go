package analyses_test

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
	"testing"

	"autograde-backend/internal/analyses"
	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
	"autograde-backend/internal/shared/storage/object"
	localstore "autograde-backend/internal/shared/storage/object/local"
)

// failingStore fails writes whose key matches a prefix, delegating the rest.
type failingStore struct {
	object.ObjectStore
	failPrefix string
}

func (s *failingStore) Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	if strings.HasPrefix(storageKey, s.failPrefix) {
		return 0, fmt.Errorf("disk full")
	}
	return s.ObjectStore.Put(ctx, storageKey, contentType, r)
}

func newService(t *testing.T, store object.ObjectStore, engine detector.Engine) *analyses.Service {
	t.Helper()
	return &analyses.Service{
		Artifacts: artifact.NewStore(store),
		Invoker:   detector.NewInvoker(engine, 0.3, 0),
		Repo:      analyses.NewMemoryRepo(),
	}
}

func TestAnalyzeAnnotatedWriteFailureLeavesNoOriginal(t *testing.T) {
	dir := t.TempDir()
	local := localstore.New(dir)
	store := &failingStore{ObjectStore: local, failPrefix: "results/"}
	engine := &fakeEngine{
		detections: []detector.RawDetection{
			{Label: "dent", Confidence: 0.9, Box: [4]float64{1, 2, 3, 4}},
		},
	}
	svc := newService(t, store, engine)

	a, err := svc.Analyze(context.Background(), "image/jpeg", encodeJPEG(64, 48, color.White))
	if !errors.Is(err, analyses.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v (analysis %+v)", err, a)
	}

	// The original written before the failing annotated put must be gone.
	if n := countStoredFiles(t, dir); n != 0 {
		t.Fatalf("expected zero stored artifacts, found %d", n)
	}

	items, err := svc.Repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no recorded analyses, got %d", len(items))
	}
}

func TestAnalyzeOriginalWriteFailure(t *testing.T) {
	local := localstore.New(t.TempDir())
	store := &failingStore{ObjectStore: local, failPrefix: "uploads/"}
	engine := &fakeEngine{}
	svc := newService(t, store, engine)

	_, err := svc.Analyze(context.Background(), "image/jpeg", encodeJPEG(64, 48, color.White))
	if !errors.Is(err, analyses.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestDamageTypesDeduplicatedAndSorted(t *testing.T) {
	engine := &fakeEngine{
		detections: []detector.RawDetection{
			{Label: "scratch", Confidence: 0.9, Box: [4]float64{1, 2, 3, 4}},
			{Label: "dent", Confidence: 0.8, Box: [4]float64{5, 6, 7, 8}},
			{Label: "scratch", Confidence: 0.7, Box: [4]float64{9, 10, 11, 12}},
		},
	}
	svc := newService(t, localstore.New(t.TempDir()), engine)

	a, err := svc.Analyze(context.Background(), "image/jpeg", encodeJPEG(64, 48, color.White))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(a.Detections) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(a.Detections))
	}
	types := a.DamageTypes()
	if len(types) != 2 || types[0] != "dent" || types[1] != "scratch" {
		t.Fatalf("expected [dent scratch], got %v", types)
	}
}

func TestAnalyzePreservesOriginalExtension(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(t, localstore.New(t.TempDir()), engine)

	a, err := svc.Analyze(context.Background(), "image/png", encodePNG(t, 32, 32))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.HasSuffix(a.OriginalRef.Filename(), ".png") {
		t.Fatalf("expected .png original, got %s", a.OriginalRef.Filename())
	}
	if !strings.HasSuffix(a.AnnotatedRef.Filename(), ".jpg") {
		t.Fatalf("expected .jpg annotated, got %s", a.AnnotatedRef.Filename())
	}
}
