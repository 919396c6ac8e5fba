package analyses

import (
	"time"

	"autograde-backend/internal/detector"
)

// Summary aggregates the detections of one analysis.
type Summary struct {
	TotalDamageFound int      `json:"total_damage_found"`
	DamageTypes      []string `json:"damage_types"`
}

// ResultLinks carries the retrieval URLs for both artifacts.
type ResultLinks struct {
	AnnotatedImageURL string `json:"annotated_image_url"`
	OriginalImageURL  string `json:"original_image_url"`
}

// AnalysisResult is the outward-facing representation of a completed
// analysis.
type AnalysisResult struct {
	Success    bool                 `json:"success"`
	RequestID  string               `json:"request_id"`
	Timestamp  string               `json:"timestamp"`
	Detections []detector.Detection `json:"detections"`
	Summary    Summary              `json:"summary"`
	Results    ResultLinks          `json:"results"`
}

func toResult(a Analysis) AnalysisResult {
	detections := a.Detections
	if detections == nil {
		detections = []detector.Detection{}
	}
	return AnalysisResult{
		Success:    true,
		RequestID:  a.ID,
		Timestamp:  a.CreatedAt.Format(time.RFC3339Nano),
		Detections: detections,
		Summary: Summary{
			TotalDamageFound: len(a.Detections),
			DamageTypes:      a.DamageTypes(),
		},
		Results: ResultLinks{
			AnnotatedImageURL: a.AnnotatedRef.URLPath(),
			OriginalImageURL:  a.OriginalRef.URLPath(),
		},
	}
}

// ListItem is one row of the analysis history listing.
type ListItem struct {
	RequestID        string      `json:"request_id"`
	Timestamp        string      `json:"timestamp"`
	TotalDamageFound int         `json:"total_damage_found"`
	DamageTypes      []string    `json:"damage_types"`
	Results          ResultLinks `json:"results"`
}

func toListItem(a Analysis) ListItem {
	return ListItem{
		RequestID:        a.ID,
		Timestamp:        a.CreatedAt.Format(time.RFC3339Nano),
		TotalDamageFound: len(a.Detections),
		DamageTypes:      a.DamageTypes(),
		Results: ResultLinks{
			AnnotatedImageURL: a.AnnotatedRef.URLPath(),
			OriginalImageURL:  a.OriginalRef.URLPath(),
		},
	}
}
