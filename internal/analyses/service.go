package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
	"autograde-backend/internal/shared/telemetry"
)

// Service orchestrates one analysis request end-to-end: decode, invoke,
// persist, assemble. It exclusively owns Analysis construction.
type Service struct {
	Artifacts *artifact.Store
	Invoker   *detector.Invoker
	Repo      Repo
}

// Analyze runs the full pipeline on one submitted image. Validation failures
// return ErrInvalidInput before the engine is touched; engine failures wrap
// detector.ErrEngine; artifact failures wrap ErrStorage. On any failure no
// retrievable artifact pair is left behind.
func (s *Service) Analyze(ctx context.Context, declaredContentType string, data []byte) (Analysis, error) {
	if !strings.HasPrefix(strings.TrimSpace(declaredContentType), "image/") {
		return Analysis{}, fmt.Errorf("%w: file must be an image", ErrInvalidInput)
	}
	if len(data) == 0 {
		return Analysis{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: invalid image file", ErrInvalidInput)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	detections, annotated, err := s.Invoker.Invoke(ctx, img)
	if err != nil {
		return Analysis{}, err
	}

	originalRef := artifact.Ref{ID: id, Role: artifact.RoleOriginal, Ext: extensionFor(format)}
	annotatedRef := artifact.Ref{ID: id, Role: artifact.RoleAnnotated}

	if err := s.Artifacts.Put(ctx, originalRef, "image/"+format, data); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.Artifacts.Put(ctx, annotatedRef, "image/jpeg", annotated); err != nil {
		// Don't leave a lone original behind for a failed request.
		s.Artifacts.Discard(ctx, originalRef)
		return Analysis{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	a := Analysis{
		ID:           id,
		CreatedAt:    createdAt,
		OriginalRef:  originalRef,
		AnnotatedRef: annotatedRef,
		Detections:   detections,
	}

	// History is supplemental metadata; both artifacts are already durable,
	// so a failed insert must not turn the response into a lie.
	if err := s.Repo.Create(ctx, a); err != nil {
		telemetry.Error("analyses.record.failed", map[string]any{
			"analysis_id": id,
			"err":         err.Error(),
		})
	}

	return a, nil
}

// FetchArtifact serves a previously stored artifact by role and filename.
// Any filename outside the role's naming scheme, or one never written by a
// successful Analyze, returns ErrNotFound.
func (s *Service) FetchArtifact(ctx context.Context, role artifact.Role, filename string) ([]byte, string, error) {
	ref, err := artifact.ParseFilename(role, filename)
	if err != nil {
		return nil, "", ErrNotFound
	}

	data, contentType, err := s.Artifacts.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, contentType, nil
}

// List returns recent analyses, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	return s.Repo.List(ctx, limit, offset)
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return "." + format
	}
}
