package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis record. Detections are stored as JSON; the
// artifact refs are reconstructed from the id and original extension.
func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO vehicle_analyses (
    id,
    created_at,
    original_ext,
    detections,
    detection_count
) VALUES ($1, $2, $3, $4, $5)`

	detections, err := json.Marshal(a.Detections)
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		a.ID,
		a.CreatedAt,
		a.OriginalRef.Ext,
		detections,
		len(a.Detections),
	)
	return err
}

// List returns analyses newest first, honoring limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	const query = `
SELECT id, created_at, original_ext, detections
FROM vehicle_analyses
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		var ext string
		var raw []byte
		if err := rows.Scan(&a.ID, &a.CreatedAt, &ext, &raw); err != nil {
			return nil, err
		}
		var detections []detector.Detection
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &detections); err != nil {
				return nil, fmt.Errorf("unmarshal detections for %s: %w", a.ID, err)
			}
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		a.Detections = detections
		a.OriginalRef = artifact.Ref{ID: a.ID, Role: artifact.RoleOriginal, Ext: ext}
		a.AnnotatedRef = artifact.Ref{ID: a.ID, Role: artifact.RoleAnnotated}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
