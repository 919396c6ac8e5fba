package detector

import (
	"context"
	"errors"
	"image"
)

// ErrEngine indicates the detection engine failed or produced malformed
// output. It is surfaced as a server-side fault and never retried here;
// retry policy belongs to the caller.
var ErrEngine = errors.New("detection engine failure")

// RawDetection is a single record as produced by the engine, before
// filtering or rounding.
type RawDetection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// Output is the result of one engine invocation.
type Output struct {
	Detections []RawDetection
	// Annotated is a JPEG rendering of the input with detections drawn on.
	Annotated []byte
}

// Engine abstracts the object-detection model. Implementations are loaded
// once at service start and reused for the process lifetime; they are not
// assumed safe for concurrent invocation.
type Engine interface {
	Detect(ctx context.Context, img image.Image) (Output, error)
}

// Detection is the domain representation surfaced in responses. Confidence
// is rounded to 3 decimal places and bbox coordinates to 1, so repeated
// analysis of identical input yields identical numeric output.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}
