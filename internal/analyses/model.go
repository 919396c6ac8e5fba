package analyses

import (
	"sort"
	"time"

	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
)

// Analysis is the domain record produced per client submission. It is
// assembled once by the pipeline and never mutated afterwards.
type Analysis struct {
	ID           string
	CreatedAt    time.Time
	OriginalRef  artifact.Ref
	AnnotatedRef artifact.Ref
	// Detections are in the engine's native output order.
	Detections []detector.Detection
}

// DamageTypes returns the distinct detection labels, sorted so that repeated
// analysis of identical input serializes identically.
func (a Analysis) DamageTypes() []string {
	seen := make(map[string]struct{}, len(a.Detections))
	types := make([]string, 0, len(a.Detections))
	for _, d := range a.Detections {
		if _, ok := seen[d.Label]; ok {
			continue
		}
		seen[d.Label] = struct{}{}
		types = append(types, d.Label)
	}
	sort.Strings(types)
	return types
}
